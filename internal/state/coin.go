package state

import (
	"context"

	"popclient/internal/crypto"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// Outpoint names one transaction output.
type Outpoint struct {
	Tx    crypto.Hash
	Index int
}

// Ledger is the set of unspent outputs of a LAO.
type Ledger struct {
	unspent map[Outpoint]message.TxOutput
	txs     map[crypto.Hash]struct{}
}

func newLedger() *Ledger {
	return &Ledger{unspent: make(map[Outpoint]message.TxOutput), txs: make(map[crypto.Hash]struct{})}
}

// Balance sums the unspent outputs locked to pub.
func (lg *Ledger) Balance(pub crypto.PublicKey) int64 {
	hash := message.PublicKeyHash(pub)
	var n int64
	for _, out := range lg.unspent {
		if out.Script.PublicKeyHash == hash {
			n += out.Value
		}
	}
	return n
}

// Unspent returns the unspent outputs locked to pub.
func (lg *Ledger) Unspent(pub crypto.PublicKey) map[Outpoint]message.TxOutput {
	hash := message.PublicKeyHash(pub)
	out := make(map[Outpoint]message.TxOutput)
	for op, o := range lg.unspent {
		if o.Script.PublicKeyHash == hash {
			out[op] = o
		}
	}
	return out
}

// apply checks tx against the ledger and spends its inputs. Coinbase inputs
// mint value and are reserved to the organizer.
func (lg *Ledger) apply(id crypto.Hash, tx message.Transaction, organizer crypto.PublicKey) error {
	if _, ok := lg.txs[id]; ok {
		return poperr.Protocolf("transaction %s already applied", id.Short())
	}
	var in int64
	minting := false
	spent := make(map[Outpoint]struct{}, len(tx.Inputs))
	for i, input := range tx.Inputs {
		if input.TxOutHash.Equal(message.CoinbaseOutput) {
			if !input.Script.PublicKey.Equal(organizer) {
				return poperr.Authenticationf("input %d: only the organizer may issue coins", i)
			}
			minting = true
			continue
		}
		op := Outpoint{Tx: input.TxOutHash, Index: input.TxOutIndex}
		if _, dup := spent[op]; dup {
			return poperr.Protocolf("input %d spends an output twice", i)
		}
		out, ok := lg.unspent[op]
		if !ok {
			return poperr.Protocolf("input %d: output %s:%d is not spendable", i, op.Tx.Short(), op.Index)
		}
		if out.Script.PublicKeyHash != message.PublicKeyHash(input.Script.PublicKey) {
			return poperr.Authenticationf("input %d: key does not own output", i)
		}
		spent[op] = struct{}{}
		in += out.Value
	}
	if !minting && tx.Sum() > in {
		return poperr.Protocolf("outputs (%d) exceed inputs (%d)", tx.Sum(), in)
	}
	for op := range spent {
		delete(lg.unspent, op)
	}
	for i, out := range tx.Outputs {
		lg.unspent[Outpoint{Tx: id, Index: i}] = out
	}
	lg.txs[id] = struct{}{}
	return nil
}

func (s *State) postTransaction(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.PostTransaction)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	return l.Ledger.apply(d.TransactionID, d.Transaction, l.Organizer)
}
