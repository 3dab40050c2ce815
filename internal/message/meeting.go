package message

import (
	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// MeetingID is the defining hash of a meeting.
func MeetingID(lao crypto.Hash, creation int64, name string) crypto.Hash {
	return crypto.HashStrings("M", lao.String(), ts(creation), name)
}

// CreateMeeting is meeting#create.
type CreateMeeting struct {
	Header
	ID       crypto.Hash `json:"id" validate:"required"`
	Name     string      `json:"name" validate:"required"`
	Creation int64       `json:"creation" validate:"required"`
	Location string      `json:"location,omitempty"`
	Start    int64       `json:"start" validate:"required"`
	End      int64       `json:"end,omitempty"`
}

// NewCreateMeeting fills in the id.
func NewCreateMeeting(lao crypto.Hash, name string, creation, start, end int64, location string) *CreateMeeting {
	return &CreateMeeting{
		Header:   HeaderFor(KeyCreateMeeting),
		ID:       MeetingID(lao, creation, name),
		Name:     name,
		Creation: creation,
		Location: location,
		Start:    start,
		End:      end,
	}
}

func (d *CreateMeeting) Validate() error { return orderedTimes(d.Creation, d.Start, d.End) }

// StateMeeting is meeting#state.
type StateMeeting struct {
	Header
	ID                     crypto.Hash        `json:"id" validate:"required"`
	Name                   string             `json:"name" validate:"required"`
	Creation               int64              `json:"creation" validate:"required"`
	LastModified           int64              `json:"last_modified" validate:"required"`
	Location               string             `json:"location,omitempty"`
	Start                  int64              `json:"start" validate:"required"`
	End                    int64              `json:"end,omitempty"`
	ModificationID         crypto.Hash        `json:"modification_id" validate:"required"`
	ModificationSignatures []WitnessSignature `json:"modification_signatures" validate:"required,dive"`
}

func (d *StateMeeting) Validate() error {
	if d.LastModified < d.Creation {
		return poperr.Protocolf("last_modified before creation")
	}
	return orderedTimes(d.Creation, d.Start, d.End)
}

func (d *StateMeeting) TargetID() crypto.Hash { return d.ID }

// orderedTimes checks creation <= start <= end, ignoring a zero end.
func orderedTimes(creation, start, end int64) error {
	if start < creation {
		return poperr.Protocolf("start %d before creation %d", start, creation)
	}
	if end != 0 && end < start {
		return poperr.Protocolf("end %d before start %d", end, start)
	}
	return nil
}
