package message

import (
	"unicode/utf8"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// MaxChirpLength is the longest chirp text, in characters.
const MaxChirpLength = 300

// AddChirp is chirp#add, posted on a user's social channel.
type AddChirp struct {
	Header
	Text      string       `json:"text" validate:"required"`
	ParentID  *crypto.Hash `json:"parent_id,omitempty"`
	Timestamp int64        `json:"timestamp" validate:"required"`
}

// NewAddChirp builds a chirp; parent may be nil.
func NewAddChirp(text string, parent *crypto.Hash, timestamp int64) *AddChirp {
	return &AddChirp{Header: HeaderFor(KeyAddChirp), Text: text, ParentID: parent, Timestamp: timestamp}
}

func (d *AddChirp) Validate() error {
	if n := utf8.RuneCountInString(d.Text); n > MaxChirpLength {
		return poperr.Protocolf("chirp text has %d characters, limit is %d", n, MaxChirpLength)
	}
	return nil
}

// DeleteChirp is chirp#delete.
type DeleteChirp struct {
	Header
	ChirpID   crypto.Hash `json:"chirp_id" validate:"required"`
	Timestamp int64       `json:"timestamp" validate:"required"`
}

func (d *DeleteChirp) TargetID() crypto.Hash { return d.ChirpID }

// NotifyChirp is chirp#notify_add and chirp#notify_delete, the server's
// relay of a chirp event onto the LAO-wide chirps channel.
type NotifyChirp struct {
	Header
	ChirpID   crypto.Hash `json:"chirp_id" validate:"required"`
	Channel   string      `json:"channel" validate:"required"`
	Timestamp int64       `json:"timestamp" validate:"required"`
}

func (d *NotifyChirp) TargetID() crypto.Hash { return d.ChirpID }

// AddReaction is reaction#add.
type AddReaction struct {
	Header
	ReactionCodepoint string      `json:"reaction_codepoint" validate:"required"`
	ChirpID           crypto.Hash `json:"chirp_id" validate:"required"`
	Timestamp         int64       `json:"timestamp" validate:"required"`
}

func (d *AddReaction) TargetID() crypto.Hash { return d.ChirpID }

// DeleteReaction is reaction#delete.
type DeleteReaction struct {
	Header
	ReactionID crypto.Hash `json:"reaction_id" validate:"required"`
	Timestamp  int64       `json:"timestamp" validate:"required"`
}

func (d *DeleteReaction) TargetID() crypto.Hash { return d.ReactionID }
