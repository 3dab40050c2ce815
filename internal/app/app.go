package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	messagesvc "popclient/internal/services/message"
	sessionsvc "popclient/internal/services/session"
)

// App is a client connected to the servers of one LAO.
type App struct {
	Lao      crypto.Hash
	Session  *sessionsvc.Session
	Messages *messagesvc.Service

	wire   *Wire
	cancel context.CancelFunc
	done   chan error

	closeOnce sync.Once
	closeErr  error
}

// Connect opens a session from a connect QR payload, replays the logged
// history of the LAO, starts consuming broadcasts and catches up on the
// LAO channels. It returns once everything received is ingested.
func (w *Wire) Connect(ctx context.Context, payload []byte) (*App, error) {
	sess, err := w.Sessions.Connect(ctx, payload)
	if err != nil {
		return nil, err
	}
	if err := w.Replay(sess.Lao); err != nil {
		return nil, multierr.Append(err, sess.Close())
	}
	msgs := messagesvc.New(sess.Relay, w.Validator, w.Log, w.Logger)

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{Lao: sess.Lao, Session: sess, Messages: msgs, wire: w, cancel: cancel, done: make(chan error, 1)}
	go func() { a.done <- msgs.Run(runCtx) }()

	if err := w.Sessions.Join(ctx, sess, msgs); err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	w.Watcher.Drain()
	return a, nil
}

// Sync catches up on one more channel, e.g. an election or a user's social
// channel, and waits until it is ingested.
func (a *App) Sync(ctx context.Context, ch types.Channel) error {
	if err := a.Messages.Sync(ctx, ch); err != nil {
		return err
	}
	a.wire.Watcher.Drain()
	return nil
}

// Publish publishes data on ch as signer and waits until the local copy is
// ingested.
func (a *App) Publish(ctx context.Context, ch types.Channel, data message.Data, signer message.Signer) (message.Message, error) {
	msg, err := a.Messages.Publish(ctx, ch, data, signer)
	if err != nil {
		return msg, err
	}
	a.wire.Watcher.Drain()
	return msg, nil
}

// Close stops consuming broadcasts and closes the connections.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		a.closeErr = a.Session.Close()
		if runErr := <-a.done; runErr != nil && !errors.Is(runErr, context.Canceled) {
			a.closeErr = multierr.Append(a.closeErr, runErr)
		}
	})
	return a.closeErr
}
