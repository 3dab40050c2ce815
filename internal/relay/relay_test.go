package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/protocol/jsonrpc"
	"popclient/internal/relay"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startHub(t *testing.T) (*relay.Hub, string) {
	t.Helper()
	v, err := message.NewValidator(message.NewSchema(), 0)
	require.NoError(t, err)
	hub := relay.NewHub(zerolog.Nop(), v)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, wsURL(srv)
}

// startSilent accepts connections and never answers.
func startSilent(t *testing.T) string {
	t.Helper()
	var up websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return wsURL(srv)
}

func dial(t *testing.T, addr string, timeout time.Duration) *relay.Conn {
	t.Helper()
	c, err := relay.Dial(context.Background(), addr, relay.Options{Timeout: timeout, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newLao(t *testing.T) (message.Message, types.Channel) {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	create := message.NewCreateLao("lao", kp.Public, 1700000000, nil)
	msg, err := message.Build(create, kp)
	require.NoError(t, err)
	return msg, types.LaoChannel(create.ID)
}

func TestPublishSubscribeCatchup(t *testing.T) {
	hub, addr := startHub(t)
	pub := dial(t, addr, 0)
	sub := dial(t, addr, 0)
	ctx := context.Background()
	msg, ch := newLao(t)

	require.NoError(t, sub.Subscribe(ctx, ch))
	require.NoError(t, pub.Publish(ctx, ch, msg))

	select {
	case b := <-sub.Broadcasts():
		require.Equal(t, ch, b.Channel)
		got, err := message.ParseMessage(b.Message)
		require.NoError(t, err)
		require.True(t, msg.Equal(got))
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast")
	}

	msgs, err := pub.Catchup(ctx, ch)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	got, err := message.ParseMessage(msgs[0])
	require.NoError(t, err)
	require.True(t, msg.Equal(got))
	require.Len(t, hub.Messages(ch), 1)

	empty, err := pub.Catchup(ctx, ch.Child("nothing"))
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, sub.Unsubscribe(ctx, ch))
}

func TestServerErrorsAreTransportErrors(t *testing.T) {
	_, addr := startHub(t)
	c := dial(t, addr, 0)
	ctx := context.Background()
	msg, ch := newLao(t)

	require.NoError(t, c.Publish(ctx, ch, msg))
	err := c.Publish(ctx, ch, msg)
	require.ErrorIs(t, err, poperr.ErrTransport)
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, jsonrpc.CodeAlreadyExists, rpcErr.Code)

	err = c.Subscribe(ctx, types.RootChannel)
	require.ErrorIs(t, err, poperr.ErrTransport)

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	forged, _ := newLao(t)
	forged.Sender = other.Public
	err = c.Publish(ctx, ch, forged)
	require.ErrorIs(t, err, poperr.ErrTransport)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, jsonrpc.CodeInvalidMessageField, rpcErr.Code)
}

func TestHub_RootTakesOnlyLaoCreate(t *testing.T) {
	hub, addr := startHub(t)
	c := dial(t, addr, 0)
	ctx := context.Background()
	msg, ch := newLao(t)

	require.NoError(t, c.Publish(ctx, types.RootChannel, msg))
	history, err := c.Catchup(ctx, ch)
	require.NoError(t, err)
	require.Len(t, history, 1)
	first, err := message.ParseMessage(history[0])
	require.NoError(t, err)
	require.Equal(t, msg.MessageID, first.MessageID)
	require.Len(t, hub.Messages(types.RootChannel), 1)

	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	chirp, err := message.Build(message.NewAddChirp("hi", nil, 1700000000), kp)
	require.NoError(t, err)
	err = c.Publish(ctx, types.RootChannel, chirp)
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, jsonrpc.CodeInvalidMessageField, rpcErr.Code)
}

func TestRequestTimeout(t *testing.T) {
	c := dial(t, startSilent(t), 50*time.Millisecond)

	start := time.Now()
	err := c.Subscribe(context.Background(), types.RootChannel.Child("x"))
	require.ErrorIs(t, err, poperr.ErrTransport)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestRequestContextCancel(t *testing.T) {
	c := dial(t, startSilent(t), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Subscribe(ctx, types.RootChannel.Child("x"))
	require.ErrorIs(t, err, poperr.ErrTransport)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosedConnection(t *testing.T) {
	_, addr := startHub(t)
	c := dial(t, addr, 0)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	<-c.Done()
	err := c.Subscribe(context.Background(), types.RootChannel.Child("x"))
	require.ErrorIs(t, err, poperr.ErrTransport)
	require.ErrorIs(t, err, relay.ErrClosed)

	_, open := <-c.Broadcasts()
	require.False(t, open)
}

func TestPoolFailsOnFirstServerWithoutRetry(t *testing.T) {
	hub, healthy := startHub(t)
	pool := relay.NewPool(dial(t, startSilent(t), 50*time.Millisecond), dial(t, healthy, 0))
	msg, ch := newLao(t)

	err := pool.Publish(context.Background(), ch, msg)
	require.ErrorIs(t, err, poperr.ErrTransport)
	require.Empty(t, hub.Messages(ch))
	require.Len(t, pool.Conns(), 2)

	// Explicit failover is up to the caller.
	require.NoError(t, pool.Conns()[1].Publish(context.Background(), ch, msg))
	require.Len(t, hub.Messages(ch), 1)
}

func TestPoolUsesPrimary(t *testing.T) {
	hub, addr := startHub(t)
	pool, err := relay.DialPool(context.Background(), []string{addr, addr}, relay.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()
	msg, ch := newLao(t)

	require.NoError(t, pool.Subscribe(ctx, ch))
	require.NoError(t, pool.Publish(ctx, ch, msg))
	select {
	case b := <-pool.Broadcasts():
		require.Equal(t, ch, b.Channel)
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast")
	}
	msgs, err := pool.Catchup(ctx, ch)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, hub.Messages(ch), 1)
	require.NoError(t, pool.Close())
}

func TestEmptyPool(t *testing.T) {
	pool := relay.NewPool()
	err := pool.Subscribe(context.Background(), types.RootChannel.Child("x"))
	require.ErrorIs(t, err, poperr.ErrTransport)
	_, open := <-pool.Broadcasts()
	require.False(t, open)

	_, err = relay.DialPool(context.Background(), nil, relay.Options{})
	require.ErrorIs(t, err, poperr.ErrTransport)
}

func TestDialPoolClosesOnFailure(t *testing.T) {
	_, addr := startHub(t)
	_, err := relay.DialPool(context.Background(), []string{addr, "ws://127.0.0.1:1/unreachable"}, relay.Options{Logger: zerolog.Nop()})
	require.ErrorIs(t, err, poperr.ErrTransport)
}

func TestConn_DropsBroadcastOnInvalidChannel(t *testing.T) {
	msg, ch := newLao(t)
	good, err := json.Marshal(jsonrpc.NewBroadcast(ch, msg))
	require.NoError(t, err)
	bad := []byte(strings.Replace(string(good), `"`+ch.String()+`"`, `"/elsewhere"`, 1))
	require.NotEqual(t, good, bad)

	var up websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, bad)
		_ = ws.WriteMessage(websocket.TextMessage, good)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	c := dial(t, wsURL(srv), 0)
	select {
	case b := <-c.Broadcasts():
		require.Equal(t, ch, b.Channel)
	case <-time.After(5 * time.Second):
		t.Fatal("no broadcast")
	}
}
