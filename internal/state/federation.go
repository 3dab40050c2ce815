package state

import (
	"context"

	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

func (s *State) challengeRequest(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.ChallengeRequest)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	l.ChallengeRequested = d.Timestamp
	return nil
}

func (s *State) challenge(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.Challenge)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireServer(l, in); err != nil {
		return err
	}
	c := *d
	l.Challenge = &c
	return nil
}

func (s *State) federationExpect(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.FederationExpect)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if err := checkChallenge(d.Challenge); err != nil {
		return err
	}
	l.Expected = append(l.Expected, *d)
	return nil
}

func (s *State) federationInit(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.FederationInit)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if err := checkChallenge(d.Challenge); err != nil {
		return err
	}
	l.Initiated = append(l.Initiated, *d)
	return nil
}

func (s *State) federationResult(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.FederationResult)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireServer(l, in); err != nil {
		return err
	}
	l.Results = append(l.Results, *d)
	return nil
}

// checkChallenge verifies that an embedded challenge message is signed and
// carries a federation#challenge.
func checkChallenge(m message.Message) error {
	if !m.Signature.Verify(m.Sender, m.Data.Bytes()) {
		return poperr.Authenticationf("challenge message has an invalid signature")
	}
	if !message.ComputeID(m.Data, m.Signature).Equal(m.MessageID) {
		return poperr.Authenticationf("challenge message id does not match")
	}
	d, err := message.NewSchema().Decode(m.Data.Bytes())
	if err != nil {
		return err
	}
	if d.DataKey() != message.KeyChallenge {
		return poperr.Protocolf("embedded %s is not a challenge", d.DataKey())
	}
	return nil
}
