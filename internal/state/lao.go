package state

import (
	"context"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

func (s *State) createLao(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.CreateLao)
	// The server copies lao#create into the new LAO channel, so catchup
	// there starts with it.
	if !in.Channel.IsRoot() && in.Channel != types.LaoChannel(d.ID) {
		return poperr.Protocolf("lao#create is only allowed on %s or its own channel", types.RootChannel)
	}
	if !in.Message.Sender.Equal(d.Organizer) {
		return poperr.Authenticationf("lao#create must be sent by its organizer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.laos[d.ID]; ok {
		return poperr.Protocolf("lao %s already exists", d.ID.Short())
	}
	if err := s.laoStore.SaveWitnesses(d.ID, d.Witnesses); err != nil {
		return err
	}
	s.laos[d.ID] = newLao(d)
	s.log.Info().Str("lao", d.ID.Short()).Str("name", d.Name).Msg("lao created")
	return nil
}

func (s *State) updateLao(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.UpdateLao)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if !d.ID.Equal(message.LaoID(l.Organizer, l.Creation, d.Name)) {
		return poperr.Protocolf("update id does not match organizer, creation and new name")
	}
	if d.LastModified < l.LastModified {
		return poperr.Protocolf("update older than current state")
	}
	if err := s.laoStore.SaveWitnesses(l.ID, d.Witnesses); err != nil {
		return err
	}
	l.Name = d.Name
	l.LastModified = d.LastModified
	l.Witnesses = append([]crypto.PublicKey(nil), d.Witnesses...)
	return nil
}

// stateLao records the organizer's summary; it takes effect once witnessed.
func (s *State) stateLao(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.StateLao)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if !d.ID.Equal(l.ID) {
		return poperr.Protocolf("lao#state for %s on channel of %s", d.ID.Short(), l.ID.Short())
	}
	id := in.Message.MessageID
	l.PendingSync[id] = d
	s.requireWitnessing(l, in.Message, func() {
		delete(l.PendingSync, id)
		if d.LastModified < l.LastModified {
			return
		}
		if err := s.laoStore.SaveWitnesses(l.ID, d.Witnesses); err != nil {
			s.log.Error().Err(err).Str("lao", l.ID.Short()).Msg("persist witnesses")
			return
		}
		l.Name = d.Name
		l.LastModified = d.LastModified
		l.Witnesses = append([]crypto.PublicKey(nil), d.Witnesses...)
		l.StateID = id
	})
	return nil
}

func (s *State) greetLao(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.GreetLao)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if !d.Lao.Equal(l.ID) {
		return poperr.Protocolf("lao#greet for %s on channel of %s", d.Lao.Short(), l.ID.Short())
	}
	if !in.Message.Sender.Equal(d.Frontend) {
		return poperr.Authenticationf("lao#greet must be signed by the announced frontend key")
	}
	l.Server = d.Frontend
	l.ServerAddr = d.Address
	l.Peers = l.Peers[:0]
	for _, p := range d.Peers {
		l.Peers = append(l.Peers, p.Address)
	}
	return nil
}

func (s *State) createMeeting(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.CreateMeeting)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if !d.ID.Equal(message.MeetingID(l.ID, d.Creation, d.Name)) {
		return poperr.Protocolf("meeting id does not match lao, creation and name")
	}
	if _, ok := l.Meetings[d.ID]; ok {
		return poperr.Protocolf("meeting %s already exists", d.ID.Short())
	}
	l.Meetings[d.ID] = &Meeting{
		ID:           d.ID,
		Name:         d.Name,
		Creation:     d.Creation,
		LastModified: d.Creation,
		Location:     d.Location,
		Start:        d.Start,
		End:          d.End,
	}
	return nil
}

func (s *State) stateMeeting(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.StateMeeting)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	m, ok := l.Meetings[in.Target]
	if !ok {
		return poperr.Protocolf("unknown meeting %s", in.Target.Short())
	}
	if d.LastModified < m.LastModified {
		return poperr.Protocolf("meeting state older than current")
	}
	m.Name = d.Name
	m.LastModified = d.LastModified
	m.Location = d.Location
	m.Start = d.Start
	m.End = d.End
	return nil
}
