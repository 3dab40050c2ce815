package message

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// EpochFloor is the oldest acceptable timestamp: 2020-01-01T00:00:00Z.
var EpochFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()

// DefaultVerifiedCacheSize bounds the verified-message cache.
const DefaultVerifiedCacheSize = 4096

// timestampFields are the payload fields checked against EpochFloor.
var timestampFields = []string{
	"creation",
	"last_modified",
	"start",
	"end",
	"proposed_start",
	"proposed_end",
	"opened_at",
	"closed_at",
	"created_at",
	"start_time",
	"end_time",
	"timestamp",
	"valid_until",
}

// Validator verifies received messages.
type Validator struct {
	schema   *Schema
	verified *lru.Cache[crypto.Hash, crypto.PublicKey]
}

// NewValidator returns a validator remembering up to cacheSize verified ids.
func NewValidator(schema *Schema, cacheSize int) (*Validator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultVerifiedCacheSize
	}
	cache, err := lru.New[crypto.Hash, crypto.PublicKey](cacheSize)
	if err != nil {
		return nil, poperr.WrapConfiguration(err, "verified cache")
	}
	return &Validator{schema: schema, verified: cache}, nil
}

// Schema returns the schema used for decoding.
func (v *Validator) Schema() *Schema { return v.schema }

// Verify checks msg and returns its decoded payload. Checks run in order:
// staleness (ProtocolError), schema (SchemaError or ProtocolError), sender
// signature (AuthenticationError), message id (AuthenticationError).
func (v *Validator) Verify(msg Message) (Data, error) {
	if err := msg.checkFields(); err != nil {
		return nil, err
	}
	raw := msg.Data.Bytes()
	if err := checkStaleness(raw); err != nil {
		return nil, err
	}
	data, err := v.schema.Decode(raw)
	if err != nil {
		return nil, err
	}
	if sender, ok := v.verified.Get(msg.MessageID); ok && sender.Equal(msg.Sender) &&
		ComputeID(msg.Data, msg.Signature).Equal(msg.MessageID) {
		return data, nil
	}
	if !msg.Signature.Verify(msg.Sender, raw) {
		return nil, poperr.Authenticationf("invalid signature on message %s", msg.MessageID.Short())
	}
	if !ComputeID(msg.Data, msg.Signature).Equal(msg.MessageID) {
		return nil, poperr.Authenticationf("message id %s does not match data and signature", msg.MessageID.Short())
	}
	v.verified.Add(msg.MessageID, msg.Sender)
	return data, nil
}

// checkStaleness rejects payloads whose top-level timestamps predate
// EpochFloor. Fields that are not integers are left to the schema.
func checkStaleness(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return poperr.WrapDecode(err, "data")
	}
	for _, name := range timestampFields {
		f, ok := fields[name]
		if !ok {
			continue
		}
		var t int64
		if json.Unmarshal(f, &t) != nil {
			continue
		}
		if t < EpochFloor {
			return poperr.Protocolf("stale timestamp %s=%d", name, t)
		}
	}
	return nil
}
