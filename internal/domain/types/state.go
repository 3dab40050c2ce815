package types

import (
	"encoding/json"

	"popclient/internal/crypto"
)

// Attendance is the set of PoP tokens recorded for one roll call.
type Attendance struct {
	LaoID      crypto.Hash        `json:"lao_id"`
	RollCallID crypto.Hash        `json:"roll_call_id"`
	Attendees  []crypto.PublicKey `json:"attendees"`
}

// Contains reports whether pk attended.
func (a Attendance) Contains(pk crypto.PublicKey) bool {
	for _, att := range a.Attendees {
		if att.Equal(pk) {
			return true
		}
	}
	return false
}

// Broadcast is a server push on a subscribed channel.
type Broadcast struct {
	Channel Channel         `json:"channel"`
	Message json.RawMessage `json:"message"`
}
