package ingest

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// Watcher feeds message log appends to a pipeline, in append order, on its
// own goroutine.
type Watcher struct {
	source   domain.MessageLog
	pipeline *Pipeline
	schema   *message.Schema
	log      zerolog.Logger
	cancel   func()

	mu        sync.Mutex
	idle      *sync.Cond
	queue     []domain.LogEntry
	enqueued  uint64
	processed uint64
	closed    bool
	errs      error

	wake chan struct{}
	done chan struct{}
}

// NewWatcher starts following ml.
func NewWatcher(ml domain.MessageLog, p *Pipeline, schema *message.Schema, logger zerolog.Logger) *Watcher {
	w := &Watcher{
		source:   ml,
		pipeline: p,
		schema:   schema,
		log:      logger.With().Str("component", "watcher").Logger(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	w.cancel = ml.OnAppend(w.enqueue)
	go w.run()
	return w
}

func (w *Watcher) enqueue(e domain.LogEntry) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn().Str("id", e.Message.MessageID.Short()).Msg("append after close, not ingested")
		return
	}
	w.queue = append(w.queue, e)
	w.enqueued++
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			<-w.wake
			continue
		}
		e := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		err := w.process(e)

		w.mu.Lock()
		w.errs = multierr.Append(w.errs, err)
		w.processed++
		w.idle.Broadcast()
		w.mu.Unlock()
	}
}

func (w *Watcher) process(e domain.LogEntry) error {
	data, err := w.schema.Decode(e.Message.Data.Bytes())
	if err != nil {
		w.log.Error().Err(err).Str("id", e.Message.MessageID.Short()).Msg("logged message does not decode")
		return nil
	}
	_, err = w.pipeline.Ingest(context.Background(), e.Channel, e.Message, data)
	return err
}

// Replay queues the entries already in the log for chs, channel by
// channel in the given order, and waits until they are processed. Entries
// the pipeline has seen are skipped there.
func (w *Watcher) Replay(chs ...types.Channel) error {
	for _, ch := range chs {
		msgs, err := w.source.Messages(ch)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			w.enqueue(domain.LogEntry{Channel: ch, Message: m})
		}
	}
	w.Drain()
	return nil
}

// Drain blocks until every entry appended before the call is processed.
func (w *Watcher) Drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	target := w.enqueued
	for w.processed < target {
		w.idle.Wait()
	}
}

// Close stops following the log, processes what is queued and returns the
// pipeline errors met along the way.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errs
}
