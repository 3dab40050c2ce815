package message

import (
	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// RollCallID is the defining hash of a roll call.
func RollCallID(lao crypto.Hash, creation int64, name string) crypto.Hash {
	return crypto.HashStrings("R", lao.String(), ts(creation), name)
}

// RollCallUpdateID is the id of an open, reopen or close step on target.
func RollCallUpdateID(lao, target crypto.Hash, at int64) crypto.Hash {
	return crypto.HashStrings("R", lao.String(), target.String(), ts(at))
}

// CreateRollCall is roll_call#create.
type CreateRollCall struct {
	Header
	ID            crypto.Hash `json:"id" validate:"required"`
	Name          string      `json:"name" validate:"required"`
	Creation      int64       `json:"creation" validate:"required"`
	ProposedStart int64       `json:"proposed_start" validate:"required"`
	ProposedEnd   int64       `json:"proposed_end" validate:"required"`
	Location      string      `json:"location" validate:"required"`
	Description   string      `json:"description,omitempty"`
}

// NewCreateRollCall fills in the id.
func NewCreateRollCall(lao crypto.Hash, name string, creation, start, end int64, location string) *CreateRollCall {
	return &CreateRollCall{
		Header:        HeaderFor(KeyCreateRollCall),
		ID:            RollCallID(lao, creation, name),
		Name:          name,
		Creation:      creation,
		ProposedStart: start,
		ProposedEnd:   end,
		Location:      location,
	}
}

func (d *CreateRollCall) Validate() error {
	return orderedTimes(d.Creation, d.ProposedStart, d.ProposedEnd)
}

// OpenRollCall is roll_call#open and roll_call#reopen. Opens names the
// roll call or, for a reopen, the close step being undone.
type OpenRollCall struct {
	Header
	UpdateID crypto.Hash `json:"update_id" validate:"required"`
	Opens    crypto.Hash `json:"opens" validate:"required"`
	OpenedAt int64       `json:"opened_at" validate:"required"`
}

// NewOpenRollCall builds an open, or a reopen when reopen is set.
func NewOpenRollCall(lao, opens crypto.Hash, openedAt int64, reopen bool) *OpenRollCall {
	key := KeyOpenRollCall
	if reopen {
		key = KeyReopenRollCall
	}
	return &OpenRollCall{
		Header:   HeaderFor(key),
		UpdateID: RollCallUpdateID(lao, opens, openedAt),
		Opens:    opens,
		OpenedAt: openedAt,
	}
}

func (d *OpenRollCall) TargetID() crypto.Hash { return d.Opens }

// CloseRollCall is roll_call#close. It carries the attendance set.
type CloseRollCall struct {
	Header
	UpdateID  crypto.Hash        `json:"update_id" validate:"required"`
	Closes    crypto.Hash        `json:"closes" validate:"required"`
	ClosedAt  int64              `json:"closed_at" validate:"required"`
	Attendees []crypto.PublicKey `json:"attendees" validate:"required,dive,required"`
}

// NewCloseRollCall fills in the update id.
func NewCloseRollCall(lao, closes crypto.Hash, closedAt int64, attendees []crypto.PublicKey) *CloseRollCall {
	return &CloseRollCall{
		Header:    HeaderFor(KeyCloseRollCall),
		UpdateID:  RollCallUpdateID(lao, closes, closedAt),
		Closes:    closes,
		ClosedAt:  closedAt,
		Attendees: nonNilKeys(attendees),
	}
}

func (d *CloseRollCall) Validate() error { return uniqueKeys("attendees", d.Attendees) }

func (d *CloseRollCall) TargetID() crypto.Hash { return d.Closes }

// checkUpdateID reports a ProtocolError when an update id does not match.
func checkUpdateID(got, want crypto.Hash) error {
	if !got.Equal(want) {
		return poperr.Protocolf("update_id %s does not match %s", got.Short(), want.Short())
	}
	return nil
}

// CheckUpdateID verifies d against the LAO it was received on.
func (d *OpenRollCall) CheckUpdateID(lao crypto.Hash) error {
	return checkUpdateID(d.UpdateID, RollCallUpdateID(lao, d.Opens, d.OpenedAt))
}

// CheckUpdateID verifies d against the LAO it was received on.
func (d *CloseRollCall) CheckUpdateID(lao crypto.Hash) error {
	return checkUpdateID(d.UpdateID, RollCallUpdateID(lao, d.Closes, d.ClosedAt))
}
