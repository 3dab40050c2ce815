package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/protocol/jsonrpc"
)

const (
	peerBuffer = 256
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Hub is an in-memory LAO pub/sub server. It keeps every published message
// per channel, answers catchup from that log and fans publications out to
// subscribers. Messages are verified before they are stored.
type Hub struct {
	log       zerolog.Logger
	validator *message.Validator
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	channels map[types.Channel]*hubChannel
}

type hubChannel struct {
	log  []message.Message
	ids  map[crypto.Hash]struct{}
	subs map[*peer]struct{}
}

type peer struct {
	ws   *websocket.Conn
	send chan []byte
}

// NewHub returns an empty hub. A nil validator accepts any message.
func NewHub(logger zerolog.Logger, v *message.Validator) *Hub {
	return &Hub{
		log:       logger.With().Str("component", "hub").Logger(),
		validator: v,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		channels:  make(map[types.Channel]*hubChannel),
	}
}

func (h *Hub) channel(ch types.Channel) *hubChannel {
	c, ok := h.channels[ch]
	if !ok {
		c = &hubChannel{ids: make(map[crypto.Hash]struct{}), subs: make(map[*peer]struct{})}
		h.channels[ch] = c
	}
	return c
}

// Publish stores msg on ch and broadcasts it to the subscribers. A message
// already stored on ch is rejected with CodeAlreadyExists. The root channel
// only takes lao#create, which also opens the LAO channel with the create
// message as its first entry.
func (h *Hub) Publish(ch types.Channel, msg message.Message) *jsonrpc.Error {
	var data message.Data
	if h.validator != nil {
		d, err := h.validator.Verify(msg)
		if err != nil {
			return &jsonrpc.Error{Code: jsonrpc.CodeInvalidMessageField, Description: err.Error()}
		}
		data = d
	}
	var laoCh types.Channel
	if ch.IsRoot() && data != nil {
		create, ok := data.(*message.CreateLao)
		if !ok {
			return &jsonrpc.Error{Code: jsonrpc.CodeInvalidMessageField, Description: "only lao#create is allowed on root, got " + data.DataKey().String()}
		}
		laoCh = types.LaoChannel(create.ID)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if laoCh != "" {
		if c, ok := h.channels[laoCh]; ok && len(c.log) > 0 {
			return &jsonrpc.Error{Code: jsonrpc.CodeAlreadyExists, Description: "lao channel " + laoCh.String() + " already exists"}
		}
		if errAnswer := h.store(laoCh, msg); errAnswer != nil {
			return errAnswer
		}
	}
	return h.store(ch, msg)
}

// store appends msg to the log of ch and fans it out. h.mu must be held.
func (h *Hub) store(ch types.Channel, msg message.Message) *jsonrpc.Error {
	frame, err := json.Marshal(jsonrpc.NewBroadcast(ch, msg))
	if err != nil {
		return &jsonrpc.Error{Code: jsonrpc.CodeInternal, Description: err.Error()}
	}
	c := h.channel(ch)
	if _, dup := c.ids[msg.MessageID]; dup {
		return &jsonrpc.Error{Code: jsonrpc.CodeAlreadyExists, Description: "message " + msg.MessageID.String() + " already exists"}
	}
	c.ids[msg.MessageID] = struct{}{}
	c.log = append(c.log, msg)
	for p := range c.subs {
		select {
		case p.send <- frame:
		default:
			h.log.Warn().Str("channel", ch.String()).Msg("subscriber too slow, dropping it")
			delete(c.subs, p)
			_ = p.ws.Close()
		}
	}
	h.log.Debug().Str("channel", ch.String()).Str("id", msg.MessageID.Short()).Msg("published")
	return nil
}

// Messages returns the log of ch.
func (h *Hub) Messages(ch types.Channel) []message.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.channels[ch]
	if !ok {
		return nil
	}
	return append([]message.Message(nil), c.log...)
}

// ServeHTTP upgrades the request and serves the connection until it ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	p := &peer{ws: ws, send: make(chan []byte, peerBuffer)}
	log := h.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return h.readLoop(p)
	})
	g.Go(func() error {
		defer ws.Close()
		return writeLoop(ctx, p)
	})

	err = g.Wait()
	h.dropPeer(p)
	_ = ws.Close()
	log.Debug().Err(err).Msg("client disconnected")
}

func (h *Hub) dropPeer(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.channels {
		delete(c.subs, p)
	}
}

func (h *Hub) readLoop(p *peer) error {
	if err := p.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		resp := h.handle(p, raw)
		out, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		select {
		case p.send <- out:
		default:
			return poperr.Transportf("client too slow")
		}
	}
}

func (h *Hub) handle(p *peer, raw []byte) jsonrpc.Response {
	f, err := jsonrpc.ParseFrame(raw)
	if err != nil {
		return jsonrpc.NewError(nil, jsonrpc.CodeInvalidMessageField, "%v", err)
	}
	req, err := f.Request()
	if err != nil || req.ID == nil {
		return jsonrpc.NewError(f.ID, jsonrpc.CodeInvalidMessageField, "malformed query")
	}
	ch, err := types.ParseChannel(req.Params.Channel.String())
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidResource, "%v", err)
	}

	var result any
	switch req.Method {
	case jsonrpc.MethodPublish:
		if req.Params.Message == nil {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidMessageField, "publish without message")
		}
		if rpcErr := h.Publish(ch, *req.Params.Message); rpcErr != nil {
			return jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: req.ID, Error: rpcErr}
		}
	case jsonrpc.MethodSubscribe:
		if ch.IsRoot() {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidAction, "cannot subscribe to %s", ch)
		}
		h.mu.Lock()
		h.channel(ch).subs[p] = struct{}{}
		h.mu.Unlock()
	case jsonrpc.MethodUnsubscribe:
		h.mu.Lock()
		if c, ok := h.channels[ch]; ok {
			delete(c.subs, p)
		}
		h.mu.Unlock()
	case jsonrpc.MethodCatchup:
		msgs := h.Messages(ch)
		if msgs == nil {
			msgs = []message.Message{}
		}
		result = msgs
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidAction, "unexpected method %q", req.Method)
	}
	resp, err := jsonrpc.NewResult(*req.ID, result)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternal, "%v", err)
	}
	return resp
}

func writeLoop(ctx context.Context, p *peer) error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-p.send:
			if err := p.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := p.ws.WriteMessage(websocket.TextMessage, out); err != nil {
				return err
			}
		case <-ping.C:
			if err := p.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
