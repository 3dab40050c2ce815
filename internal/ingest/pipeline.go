package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// Observer is told how each message went.
type Observer interface {
	Applied(in Input)
	Failed(in Input, err error)
}

// LogObserver reports through zerolog.
type LogObserver struct {
	Log zerolog.Logger
}

func (o LogObserver) Applied(in Input) {
	o.Log.Debug().
		Str("channel", in.Channel.String()).
		Str("id", in.Message.MessageID.Short()).
		Stringer("type", in.Data.DataKey()).
		Msg("applied")
}

func (o LogObserver) Failed(in Input, err error) {
	o.Log.Warn().Err(err).
		Str("channel", in.Channel.String()).
		Str("id", in.Message.MessageID.Short()).
		Stringer("type", in.Data.DataKey()).
		Msg("handler failed")
}

// Pipeline dedups, resolves aliases and dispatches.
type Pipeline struct {
	registry *Registry
	aliases  domain.AliasStore
	observer Observer

	mu   sync.Mutex
	seen map[crypto.Hash]struct{}
}

// NewPipeline wires a sealed registry to the alias table.
func NewPipeline(reg *Registry, aliases domain.AliasStore, obs Observer) *Pipeline {
	return &Pipeline{
		registry: reg,
		aliases:  aliases,
		observer: obs,
		seen:     make(map[crypto.Hash]struct{}),
	}
}

// Ingest processes msg once. It reports false for an id seen before. The id
// is marked before dispatch, so a failing handler is not retried; an id whose
// alias lookup failed stays unmarked and may be ingested again. Handler
// errors and panics go to the observer; the returned error is reserved for
// failures of the pipeline itself.
func (p *Pipeline) Ingest(ctx context.Context, ch types.Channel, msg message.Message, data message.Data) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, dup := p.seen[msg.MessageID]; dup {
		return false, nil
	}

	in := Input{Channel: ch, Message: msg, Data: data}
	if t, ok := data.(message.Targeted); ok {
		in.Target = t.TargetID()
		resolved, found, err := p.aliases.Resolve(in.Target)
		if err != nil {
			return false, fmt.Errorf("resolve %s: %w", in.Target.Short(), err)
		}
		if found {
			in.Target = resolved
		}
	}
	p.seen[msg.MessageID] = struct{}{}

	h, ok := p.registry.Lookup(data.DataKey())
	if !ok {
		p.observer.Failed(in, poperr.Configurationf("no handler for %s", data.DataKey()))
		return true, nil
	}
	if err := dispatch(ctx, h, in); err != nil {
		p.observer.Failed(in, err)
		return true, nil
	}
	p.observer.Applied(in)
	return true, nil
}

// Seen reports whether id went through the pipeline.
func (p *Pipeline) Seen(id crypto.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[id]
	return ok
}

func dispatch(ctx context.Context, h Handler, in Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, in)
}
