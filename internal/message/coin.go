package message

import (
	"bytes"
	"crypto/sha256"
	"strconv"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// ScriptP2PKH is the only supported script type.
const ScriptP2PKH = "P2PKH"

// CoinbaseOutput marks inputs that mint coins; only the organizer may spend it.
var CoinbaseOutput, _ = crypto.HashFromBytes(bytes.Repeat([]byte{1}, crypto.HashSize))

// PublicKeyHash is the address form of pub used in locking scripts.
func PublicKeyHash(pub crypto.PublicKey) string {
	sum := sha256.Sum256(pub.Bytes())
	return crypto.B64(sum[:20])
}

// UnlockScript proves ownership of a spent output.
type UnlockScript struct {
	Type      string           `json:"type" validate:"required,eq=P2PKH"`
	PublicKey crypto.PublicKey `json:"pubkey" validate:"required"`
	Signature crypto.Signature `json:"sig" validate:"required"`
}

// LockScript names the owner of an output.
type LockScript struct {
	Type          string `json:"type" validate:"required,eq=P2PKH"`
	PublicKeyHash string `json:"pubkey_hash" validate:"required"`
}

// TxInput spends output TxOutIndex of transaction TxOutHash.
type TxInput struct {
	TxOutHash  crypto.Hash  `json:"tx_out_hash" validate:"required"`
	TxOutIndex int          `json:"tx_out_index" validate:"min=0"`
	Script     UnlockScript `json:"script"`
}

// TxOutput locks Value to a public key hash.
type TxOutput struct {
	Value  int64      `json:"value" validate:"min=0"`
	Script LockScript `json:"script"`
}

// Transaction is the body of coin#post_transaction.
type Transaction struct {
	Version  int        `json:"version"`
	Inputs   []TxInput  `json:"inputs" validate:"required,min=1,dive"`
	Outputs  []TxOutput `json:"outputs" validate:"required,min=1,dive"`
	LockTime int64      `json:"lock_time" validate:"min=0"`
}

// SigningPayload is what every input signature covers: the spent outputs
// followed by the new outputs.
func (tx Transaction) SigningPayload() []byte {
	var b bytes.Buffer
	for _, in := range tx.Inputs {
		b.WriteString(in.TxOutHash.String())
		b.WriteString(strconv.Itoa(in.TxOutIndex))
	}
	for _, out := range tx.Outputs {
		b.WriteString(strconv.FormatInt(out.Value, 10))
		b.WriteString(out.Script.Type)
		b.WriteString(out.Script.PublicKeyHash)
	}
	return b.Bytes()
}

// ID hashes every field of tx in a fixed order.
func (tx Transaction) ID() crypto.Hash {
	var parts []string
	for _, in := range tx.Inputs {
		parts = append(parts,
			in.Script.PublicKey.String(),
			in.Script.Signature.String(),
			in.Script.Type,
			in.TxOutHash.String(),
			strconv.Itoa(in.TxOutIndex),
		)
	}
	parts = append(parts, strconv.FormatInt(tx.LockTime, 10))
	for _, out := range tx.Outputs {
		parts = append(parts,
			out.Script.PublicKeyHash,
			out.Script.Type,
			strconv.FormatInt(out.Value, 10),
		)
	}
	parts = append(parts, strconv.Itoa(tx.Version))
	return crypto.HashStrings(parts...)
}

// Sum is the total value of the outputs.
func (tx Transaction) Sum() int64 {
	var n int64
	for _, out := range tx.Outputs {
		n += out.Value
	}
	return n
}

// SignInputs sets the unlock script of every input to signer.
func (tx *Transaction) SignInputs(signer Signer) {
	for i := range tx.Inputs {
		tx.Inputs[i].Script = UnlockScript{Type: ScriptP2PKH, PublicKey: signer.PublicKey()}
	}
	sig := signer.Sign(tx.SigningPayload())
	for i := range tx.Inputs {
		tx.Inputs[i].Script.Signature = sig
	}
}

// PostTransaction is coin#post_transaction.
type PostTransaction struct {
	Header
	TransactionID crypto.Hash `json:"transaction_id" validate:"required"`
	Transaction   Transaction `json:"transaction"`
}

// NewPostTransaction fills in the transaction id.
func NewPostTransaction(tx Transaction) *PostTransaction {
	return &PostTransaction{Header: HeaderFor(KeyPostTransaction), TransactionID: tx.ID(), Transaction: tx}
}

func (d *PostTransaction) Validate() error {
	if !d.TransactionID.Equal(d.Transaction.ID()) {
		return poperr.Protocolf("transaction id does not match its content")
	}
	payload := d.Transaction.SigningPayload()
	for i, in := range d.Transaction.Inputs {
		if !in.Script.Signature.Verify(in.Script.PublicKey, payload) {
			return poperr.Protocolf("input %d: invalid signature", i)
		}
	}
	return nil
}
