package interfaces

import (
	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// KV is the persistence contract every typed store builds on. Values are
// JSON documents.
type KV interface {
	// Get decodes the value at key into out. It reports false when the key
	// is absent.
	Get(key string, out any) (bool, error)
	Set(key string, v any) error
	// Update decodes the current value into out (when present), runs fn and
	// stores out if fn returns true. The read-modify-write is atomic.
	Update(key string, out any, fn func(exists bool) (bool, error)) error
}

// IdentityStore persists the root key pair and the wallet mnemonic,
// encrypted under a passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, kp crypto.KeyPair) error
	LoadIdentity(passphrase string) (crypto.KeyPair, error)
	SaveMnemonic(passphrase, mnemonic string) error
	LoadMnemonic(passphrase string) (string, bool, error)
	WipeMnemonic() error
}

// LogEntry is one accepted message.
type LogEntry struct {
	Channel types.Channel   `json:"channel"`
	Message message.Message `json:"message"`
}

// MessageLog stores accepted messages per channel, once per id.
type MessageLog interface {
	// Append records msg on ch and reports whether it was new.
	Append(ch types.Channel, msg message.Message) (bool, error)
	Messages(ch types.Channel) ([]message.Message, error)
	// Channels lists under and the logged channels below it, parents first.
	Channels(under types.Channel) ([]types.Channel, error)
	// OnAppend registers fn for every new entry and returns a function
	// removing it.
	OnAppend(fn func(LogEntry)) (cancel func())
}

// AliasStore maps secondary ids (open/close steps) to the id of the object
// they act on.
type AliasStore interface {
	Resolve(id crypto.Hash) (crypto.Hash, bool, error)
	SetAlias(alias, target crypto.Hash) error
}

// LaoStore persists the witness and attendance sets of LAOs.
type LaoStore interface {
	SaveWitnesses(lao crypto.Hash, witnesses []crypto.PublicKey) error
	Witnesses(lao crypto.Hash) ([]crypto.PublicKey, error)
	SaveAttendance(a types.Attendance) error
	Attendance(lao crypto.Hash) ([]types.Attendance, error)
}
