package state

import (
	"context"

	"popclient/internal/crypto"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// tracked is a message awaiting witness quorum. Signatures may arrive
// before the message itself, in which case lao is still zero.
type tracked struct {
	id         crypto.Hash
	lao        crypto.Hash
	sigs       []message.WitnessSignature
	witnessed  bool
	onWitness  func()
	registered bool
}

// tracker collects witness signatures per message id. s.mu guards it.
type tracker struct {
	byID map[crypto.Hash]*tracked
}

func newTracker() *tracker { return &tracker{byID: make(map[crypto.Hash]*tracked)} }

func (t *tracker) entry(id crypto.Hash) *tracked {
	e, ok := t.byID[id]
	if !ok {
		e = &tracked{id: id}
		t.byID[id] = e
	}
	return e
}

// requireWitnessing starts tracking msg for lao l. onWitness runs once, when
// quorum is first reached (possibly right away).
func (s *State) requireWitnessing(l *Lao, msg message.Message, onWitness func()) {
	e := s.witnesses.entry(msg.MessageID)
	e.lao = l.ID
	e.registered = true
	e.onWitness = onWitness
	for _, ws := range msg.WitnessSignatures {
		addSignature(e, ws)
	}
	s.evaluate(l, e)
}

func addSignature(e *tracked, ws message.WitnessSignature) bool {
	for _, have := range e.sigs {
		if have.Witness.Equal(ws.Witness) {
			return false
		}
	}
	e.sigs = append(e.sigs, ws)
	return true
}

// evaluate marks e witnessed once enough distinct registered witnesses of l
// signed.
func (s *State) evaluate(l *Lao, e *tracked) {
	if e.witnessed || !e.registered {
		return
	}
	count := message.CountWitnessSignatures(e.id, e.sigs, l.Witnesses)
	if !message.QuorumReached(count, len(l.Witnesses)) {
		return
	}
	e.witnessed = true
	s.log.Info().Str("id", e.id.Short()).Int("signatures", count).Int("witnesses", len(l.Witnesses)).Msg("witnessed")
	if e.onWitness != nil {
		e.onWitness()
	}
}

func (s *State) witnessMessage(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.WitnessMessage)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.laoOf(in); err != nil {
		return err
	}
	ws := message.WitnessSignature{Witness: in.Message.Sender, Signature: d.Signature}
	if !ws.Valid(d.MessageID) {
		return poperr.Authenticationf("witness signature does not cover message %s", d.MessageID.Short())
	}
	e := s.witnesses.entry(d.MessageID)
	if !addSignature(e, ws) {
		return nil
	}
	if owner, ok := s.laos[e.lao]; ok && e.registered {
		s.evaluate(owner, e)
	}
	return nil
}

// Witnessed reports whether the message id reached witness quorum.
func (s *State) Witnessed(id crypto.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.witnesses.byID[id]
	return ok && e.witnessed
}

// WitnessCount returns the number of valid signatures from registered
// witnesses collected for id.
func (s *State) WitnessCount(id crypto.Hash) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.witnesses.byID[id]
	if !ok {
		return 0
	}
	l, ok := s.laos[e.lao]
	if !ok {
		return 0
	}
	return message.CountWitnessSignatures(id, e.sigs, l.Witnesses)
}
