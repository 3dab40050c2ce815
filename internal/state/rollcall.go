package state

import (
	"context"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

func (s *State) createRollCall(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.CreateRollCall)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if !d.ID.Equal(message.RollCallID(l.ID, d.Creation, d.Name)) {
		return poperr.Protocolf("roll call id does not match lao, creation and name")
	}
	if _, ok := l.RollCalls[d.ID]; ok {
		return poperr.Protocolf("roll call %s already exists", d.ID.Short())
	}
	l.RollCalls[d.ID] = &RollCall{
		ID:            d.ID,
		Name:          d.Name,
		Creation:      d.Creation,
		ProposedStart: d.ProposedStart,
		ProposedEnd:   d.ProposedEnd,
		Location:      d.Location,
		Description:   d.Description,
	}
	return nil
}

// openRollCall handles open and reopen. The target resolves to the roll
// call through the alias of the step it names.
func (s *State) openRollCall(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.OpenRollCall)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if err := d.CheckUpdateID(l.ID); err != nil {
		return err
	}
	rc, ok := l.RollCalls[in.Target]
	if !ok {
		return poperr.Protocolf("unknown roll call %s", in.Target.Short())
	}
	want := RollCallCreated
	if d.Action == message.ActionReopen {
		want = RollCallClosed
	}
	if rc.Status != want {
		return poperr.Protocolf("cannot %s roll call %s: it is %s", d.Action, rc.ID.Short(), rc.Status)
	}
	if d.OpenedAt < rc.Creation {
		return poperr.Protocolf("roll call opened before its creation")
	}
	if err := s.alias(d.UpdateID, rc.ID); err != nil {
		return err
	}
	rc.Status = RollCallOpened
	rc.OpenedAt = d.OpenedAt
	return nil
}

// closeRollCall records the attendance set. The set is persisted at once;
// the roll call is marked witnessed when the close message reaches quorum.
func (s *State) closeRollCall(_ context.Context, in ingest.Input) error {
	d := in.Data.(*message.CloseRollCall)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.laoOf(in)
	if err != nil {
		return err
	}
	if err := requireOrganizer(l, in); err != nil {
		return err
	}
	if err := d.CheckUpdateID(l.ID); err != nil {
		return err
	}
	rc, ok := l.RollCalls[in.Target]
	if !ok {
		return poperr.Protocolf("unknown roll call %s", in.Target.Short())
	}
	if rc.Status != RollCallOpened {
		return poperr.Protocolf("cannot close roll call %s: it is %s", rc.ID.Short(), rc.Status)
	}
	if d.ClosedAt < rc.OpenedAt {
		return poperr.Protocolf("roll call closed before it opened")
	}
	attendees := append([]crypto.PublicKey(nil), d.Attendees...)
	if err := s.laoStore.SaveAttendance(types.Attendance{LaoID: l.ID, RollCallID: rc.ID, Attendees: attendees}); err != nil {
		return err
	}
	if err := s.alias(d.UpdateID, rc.ID); err != nil {
		return err
	}
	rc.Status = RollCallClosed
	rc.ClosedAt = d.ClosedAt
	rc.Attendees = attendees
	rc.CloseMessage = in.Message.MessageID
	rc.Witnessed = false
	s.requireWitnessing(l, in.Message, func() { rc.Witnessed = true })
	return nil
}
