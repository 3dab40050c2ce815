package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/protocol/jsonrpc"
)

const (
	// DefaultTimeout bounds the wait for an answer.
	DefaultTimeout = 10 * time.Second
	// MaxRequestID is where query ids wrap around.
	MaxRequestID = 10000

	writeWait       = 5 * time.Second
	broadcastBuffer = 256
)

// ErrClosed is returned by queries on a closed connection.
var ErrClosed = errors.New("connection closed")

// Options tune a connection.
type Options struct {
	Timeout time.Duration
	Logger  zerolog.Logger
	Dialer  *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// Conn is one websocket connection to a LAO server.
type Conn struct {
	addr    string
	ws      *websocket.Conn
	log     zerolog.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int
	pending map[int]chan jsonrpc.Response
	err     error

	broadcasts chan types.Broadcast
	done       chan struct{}
	closeOnce  sync.Once
}

var _ domain.RelayClient = (*Conn)(nil)

// Dial connects to addr.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	ws, _, err := opts.Dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, poperr.WrapTransport(err, "dial %s", addr)
	}
	c := &Conn{
		addr:       addr,
		ws:         ws,
		log:        opts.Logger.With().Str("component", "relay").Str("server", addr).Logger(),
		timeout:    opts.Timeout,
		pending:    make(map[int]chan jsonrpc.Response),
		broadcasts: make(chan types.Broadcast, broadcastBuffer),
		done:       make(chan struct{}),
	}
	go c.readLoop()
	c.log.Debug().Msg("connected")
	return c, nil
}

// Addr returns the server address.
func (c *Conn) Addr() string { return c.addr }

// Broadcasts delivers broadcast notifications in arrival order. It is
// closed when the connection ends. Consumers must keep draining it or
// answers stall behind unread broadcasts.
func (c *Conn) Broadcasts() <-chan types.Broadcast { return c.broadcasts }

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns why the connection ended, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Publish sends msg on ch.
func (c *Conn) Publish(ctx context.Context, ch types.Channel, msg message.Message) error {
	_, err := c.Request(ctx, jsonrpc.MethodPublish, jsonrpc.Params{Channel: ch, Message: &msg})
	return err
}

// Subscribe asks for broadcasts on ch.
func (c *Conn) Subscribe(ctx context.Context, ch types.Channel) error {
	_, err := c.Request(ctx, jsonrpc.MethodSubscribe, jsonrpc.Params{Channel: ch})
	return err
}

// Unsubscribe stops broadcasts on ch.
func (c *Conn) Unsubscribe(ctx context.Context, ch types.Channel) error {
	_, err := c.Request(ctx, jsonrpc.MethodUnsubscribe, jsonrpc.Params{Channel: ch})
	return err
}

// Catchup returns every message the server holds for ch.
func (c *Conn) Catchup(ctx context.Context, ch types.Channel) ([]json.RawMessage, error) {
	resp, err := c.Request(ctx, jsonrpc.MethodCatchup, jsonrpc.Params{Channel: ch})
	if err != nil {
		return nil, err
	}
	return resp.Messages()
}

// Request sends a query and waits for its answer, the timeout, ctx or the
// end of the connection, whichever comes first. Server error answers are
// TransportErrors wrapping *jsonrpc.Error.
func (c *Conn) Request(ctx context.Context, method string, params jsonrpc.Params) (jsonrpc.Response, error) {
	id, wait, err := c.register()
	if err != nil {
		return jsonrpc.Response{}, err
	}
	defer c.unregister(id)

	if err := c.write(jsonrpc.NewQuery(id, method, params)); err != nil {
		return jsonrpc.Response{}, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-wait:
		if resp.Error != nil {
			return resp, poperr.WrapTransport(resp.Error, "%s %s", method, params.Channel)
		}
		return resp, nil
	case <-timer.C:
		return jsonrpc.Response{}, poperr.Transportf("%s %s: no answer from %s after %s", method, params.Channel, c.addr, c.timeout)
	case <-ctx.Done():
		return jsonrpc.Response{}, poperr.WrapTransport(ctx.Err(), "%s %s", method, params.Channel)
	case <-c.done:
		return jsonrpc.Response{}, poperr.WrapTransport(c.Err(), "%s %s", method, params.Channel)
	}
}

func (c *Conn) register() (int, chan jsonrpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, nil, poperr.WrapTransport(c.err, "%s", c.addr)
	}
	id, err := c.allocID()
	if err != nil {
		return 0, nil, err
	}
	wait := make(chan jsonrpc.Response, 1)
	c.pending[id] = wait
	return id, wait, nil
}

// allocID returns the next free id in [1, MaxRequestID), skipping ids that
// still wait for an answer. c.mu must be held.
func (c *Conn) allocID() (int, error) {
	for range MaxRequestID {
		c.nextID = c.nextID%(MaxRequestID-1) + 1
		if _, busy := c.pending[c.nextID]; !busy {
			return c.nextID, nil
		}
	}
	return 0, poperr.Transportf("%s: too many pending queries", c.addr)
}

func (c *Conn) unregister(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) write(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return poperr.WrapSchema(err, "encode query")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return poperr.WrapTransport(err, "%s", c.addr)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return poperr.WrapTransport(err, "write to %s", c.addr)
	}
	return nil
}

func (c *Conn) readLoop() {
	defer close(c.broadcasts)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		f, err := jsonrpc.ParseFrame(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		if f.IsAnswer() {
			c.deliver(f.Answer())
			continue
		}
		if f.Method != jsonrpc.MethodBroadcast {
			c.log.Warn().Str("method", f.Method).Msg("dropping unexpected query")
			continue
		}
		var b types.Broadcast
		if err := json.Unmarshal(f.Params, &b); err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed broadcast")
			continue
		}
		select {
		case c.broadcasts <- b:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) deliver(resp jsonrpc.Response) {
	if resp.ID == nil {
		c.log.Warn().Err(resp.Error).Msg("answer without id")
		return
	}
	c.mu.Lock()
	wait, ok := c.pending[*resp.ID]
	delete(c.pending, *resp.ID)
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Int("id", *resp.ID).Msg("answer for abandoned query")
		return
	}
	wait <- resp
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.err == nil {
			c.err = cause
		}
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
		c.log.Debug().Err(cause).Msg("disconnected")
	})
}

// Close ends the connection. Pending queries fail with a TransportError.
func (c *Conn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.shutdown(ErrClosed)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return poperr.WrapTransport(err, "close %s", c.addr)
	}
	return nil
}
