package state

import (
	"context"

	"popclient/internal/domain/types"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// addChirp accepts chirps from PoP tokens on their own social channel. A
// parent may be a chirp this client never received.
func (s *State) addChirp(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.AddChirp)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if in.Channel != types.UserSocialChannel(l.ID, in.Message.Sender) {
		return poperr.Protocolf("chirp on %s is not the sender's social channel", in.Channel)
	}
	if err := s.requireAttendee(l, in.Message.Sender); err != nil {
		return err
	}
	l.Chirps[in.Message.MessageID] = &Chirp{
		ID:        in.Message.MessageID,
		Sender:    in.Message.Sender,
		Text:      d.Text,
		ParentID:  d.ParentID,
		Timestamp: d.Timestamp,
	}
	return nil
}

func (s *State) deleteChirp(_ context.Context, in ingest.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	c, ok := l.Chirps[in.Target]
	if !ok {
		return poperr.Protocolf("unknown chirp %s", in.Target.Short())
	}
	if !c.Sender.Equal(in.Message.Sender) {
		return poperr.Authenticationf("only the author may delete chirp %s", c.ID.Short())
	}
	c.Deleted = true
	c.Text = ""
	return nil
}

func (s *State) notifyChirp(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.NotifyChirp)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireServer(l, in); err != nil {
		return err
	}
	l.Feed = append(l.Feed, FeedEntry{
		ChirpID:   d.ChirpID,
		Channel:   d.Channel,
		Timestamp: d.Timestamp,
		Deleted:   d.Action == message.ActionNotifyDelete,
	})
	return nil
}

// addReaction records a reaction by chirp id. The chirp itself usually lives
// on another member's social channel, which is not synced.
func (s *State) addReaction(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.AddReaction)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := s.requireAttendee(l, in.Message.Sender); err != nil {
		return err
	}
	l.Reactions[in.Message.MessageID] = &Reaction{
		ID:        in.Message.MessageID,
		ChirpID:   in.Target,
		Sender:    in.Message.Sender,
		Codepoint: d.ReactionCodepoint,
		Timestamp: d.Timestamp,
	}
	return nil
}

func (s *State) deleteReaction(_ context.Context, in ingest.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	r, ok := l.Reactions[in.Target]
	if !ok {
		return poperr.Protocolf("unknown reaction %s", in.Target.Short())
	}
	if !r.Sender.Equal(in.Message.Sender) {
		return poperr.Authenticationf("only the author may delete reaction %s", r.ID.Short())
	}
	r.Deleted = true
	return nil
}
