package state

import (
	"context"
	"sort"

	"popclient/internal/crypto"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// RegisteredVotes hashes the sorted vote ids of the latest ballot of every
// voter, the value election#end must carry.
func RegisteredVotes(e *Election) crypto.Hash {
	var ids []string
	for _, b := range e.Ballots {
		for _, v := range b.Votes {
			ids = append(ids, v.ID.String())
		}
	}
	sort.Strings(ids)
	return crypto.HashStrings(ids...)
}

func (s *State) election(in ingest.Input) (*Lao, *Election, error) {
	l, err := s.laoOf(in)
	if err != nil {
		return nil, nil, err
	}
	e, ok := l.Elections[in.Target]
	if !ok {
		return nil, nil, poperr.Protocolf("unknown election %s", in.Target.Short())
	}
	return l, e, nil
}

func (s *State) setupElection(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.SetupElection)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if !d.Lao.Equal(l.ID) {
		return poperr.Protocolf("election for lao %s on channel of %s", d.Lao.Short(), l.ID.Short())
	}
	if _, ok := l.Elections[d.ID]; ok {
		return poperr.Protocolf("election %s already exists", d.ID.Short())
	}
	l.Elections[d.ID] = &Election{Setup: *d, Ballots: make(map[crypto.PublicKey]Ballot)}
	return nil
}

func (s *State) openElection(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.OpenElection)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, e, err := s.election(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if e.Status != ElectionSetup {
		return poperr.Protocolf("election %s is already open", e.Setup.ID.Short())
	}
	if d.OpenedAt < e.Setup.CreatedAt {
		return poperr.Protocolf("election opened before its creation")
	}
	e.Status = ElectionOpened
	e.Opened = d.OpenedAt
	return nil
}

// castVote keeps the latest ballot of each PoP token.
func (s *State) castVote(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.CastVote)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, e, err := s.election(in)
	if err != nil {
		return err
	}
	if err := s.requireAttendee(l, in.Message.Sender); err != nil {
		return err
	}
	if e.Status != ElectionOpened {
		return poperr.Protocolf("election %s is not open", e.Setup.ID.Short())
	}
	secret := e.Setup.Version == message.SecretBallot
	for _, v := range d.Votes {
		q, ok := e.Setup.Question(v.Question)
		if !ok {
			return poperr.Protocolf("unknown question %s", v.Question.Short())
		}
		if v.Vote.IsSecret() != secret {
			return poperr.Protocolf("vote kind does not match %s", e.Setup.Version)
		}
		if !secret && (v.Vote.Index < 0 || v.Vote.Index >= len(q.BallotOptions)) {
			return poperr.Protocolf("ballot option %d out of range", v.Vote.Index)
		}
	}
	if prev, ok := e.Ballots[in.Message.Sender]; ok && prev.CreatedAt > d.CreatedAt {
		return nil
	}
	e.Ballots[in.Message.Sender] = Ballot{
		MessageID: in.Message.MessageID,
		CreatedAt: d.CreatedAt,
		Votes:     append([]message.Vote(nil), d.Votes...),
	}
	return nil
}

func (s *State) endElection(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.EndElection)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, e, err := s.election(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if e.Status != ElectionOpened {
		return poperr.Protocolf("election %s is not open", e.Setup.ID.Short())
	}
	if want := RegisteredVotes(e); !d.RegisteredVotes.Equal(want) {
		return poperr.Protocolf("registered_votes %s does not match %s", d.RegisteredVotes.Short(), want.Short())
	}
	e.Status = ElectionEnded
	return nil
}

// electionResult arrives on the election channel, /root/<lao>/<election>.
func (s *State) electionResult(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.ElectionResult)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireServer(l, in); err != nil {
		return err
	}
	segs := in.Channel.Segments()
	if len(segs) != 2 {
		return poperr.Protocolf("election#result must be published on an election channel")
	}
	id, err := crypto.ParseHash(segs[1])
	if err != nil {
		return err
	}
	e, ok := l.Elections[id]
	if !ok {
		return poperr.Protocolf("unknown election %s", id.Short())
	}
	if e.Status != ElectionEnded {
		return poperr.Protocolf("election %s has not ended", id.Short())
	}
	for _, r := range d.Questions {
		if _, ok := e.Setup.Question(r.ID); !ok {
			return poperr.Protocolf("result for unknown question %s", r.ID.Short())
		}
	}
	e.Results = d.Questions
	e.Status = ElectionResulted
	return nil
}
