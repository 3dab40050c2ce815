package message

import (
	"crypto/rand"
	"encoding/hex"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// Federation result statuses.
const (
	FederationSuccess = "success"
	FederationFailure = "failure"
)

// ChallengeRequest is federation#challenge_request, sent by the organizer to
// its own server.
type ChallengeRequest struct {
	Header
	Timestamp int64 `json:"timestamp" validate:"required"`
}

// Challenge is federation#challenge, the server's answer.
type Challenge struct {
	Header
	Value      string `json:"value" validate:"required,hexadecimal,len=64"`
	ValidUntil int64  `json:"valid_until" validate:"required"`
}

// NewChallenge returns a random challenge valid until validUntil.
func NewChallenge(validUntil int64) (*Challenge, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, poperr.WrapProtocol(err, "generate challenge")
	}
	return &Challenge{Header: HeaderFor(KeyChallenge), Value: hex.EncodeToString(b[:]), ValidUntil: validUntil}, nil
}

// FederationExpect is federation#expect: the organizer tells its server
// which remote LAO to expect.
type FederationExpect struct {
	Header
	LaoID         crypto.Hash      `json:"lao_id" validate:"required"`
	ServerAddress string           `json:"server_address" validate:"required,url"`
	PublicKey     crypto.PublicKey `json:"public_key" validate:"required"`
	Challenge     Message          `json:"challenge"`
}

// FederationInit is federation#init: the organizer asks its server to
// connect to a remote LAO.
type FederationInit struct {
	Header
	LaoID         crypto.Hash      `json:"lao_id" validate:"required"`
	ServerAddress string           `json:"server_address" validate:"required,url"`
	PublicKey     crypto.PublicKey `json:"public_key" validate:"required"`
	Challenge     Message          `json:"challenge"`
}

// FederationResult is federation#result.
type FederationResult struct {
	Header
	Status    string           `json:"status" validate:"required,oneof=success failure"`
	Reason    string           `json:"reason,omitempty"`
	PublicKey crypto.PublicKey `json:"public_key"`
	Challenge Message          `json:"challenge"`
}

func (d *FederationResult) Validate() error {
	switch d.Status {
	case FederationSuccess:
		if d.PublicKey.IsZero() {
			return poperr.Protocolf("successful federation result without public_key")
		}
	case FederationFailure:
		if d.Reason == "" {
			return poperr.Protocolf("failed federation result without reason")
		}
	}
	return nil
}
