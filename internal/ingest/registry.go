package ingest

import (
	"context"
	"strings"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// Input is what a handler receives.
type Input struct {
	Channel types.Channel
	Message message.Message
	Data    message.Data
	// Target is the resolved id of the object Data acts on, zero when Data
	// is not message.Targeted.
	Target crypto.Hash
}

// Handler applies one kind of message.
type Handler func(ctx context.Context, in Input) error

// Registry is the dispatch table.
type Registry struct {
	handlers map[message.Key]Handler
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[message.Key]Handler)}
}

// Register adds h for k. Registering a key twice, or after Seal, is a
// ConfigurationError.
func (r *Registry) Register(k message.Key, h Handler) error {
	if r.sealed {
		return poperr.Configurationf("registry is sealed, cannot add %s", k)
	}
	if _, dup := r.handlers[k]; dup {
		return poperr.Configurationf("duplicate handler for %s", k)
	}
	r.handlers[k] = h
	return nil
}

// Seal checks that every key has a handler and freezes the table.
func (r *Registry) Seal(keys []message.Key) error {
	var missing []string
	for _, k := range keys {
		if _, ok := r.handlers[k]; !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return poperr.Configurationf("no handler for %s", strings.Join(missing, ", "))
	}
	r.sealed = true
	return nil
}

// Lookup returns the handler of k.
func (r *Registry) Lookup(k message.Key) (Handler, bool) {
	h, ok := r.handlers[k]
	return h, ok
}
