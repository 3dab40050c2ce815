package relay

import (
	"context"
	"encoding/json"

	"go.uber.org/multierr"

	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// Pool holds the connections of one session. Queries go to the first
// connection only.
type Pool struct {
	conns []*Conn
}

var _ domain.RelayClient = (*Pool)(nil)

// NewPool groups already open connections, first one primary.
func NewPool(conns ...*Conn) *Pool {
	return &Pool{conns: conns}
}

// DialPool dials addrs in order. If any dial fails the connections opened
// so far are closed and the error is returned.
func DialPool(ctx context.Context, addrs []string, opts Options) (*Pool, error) {
	if len(addrs) == 0 {
		return nil, poperr.Transportf("no server address")
	}
	conns := make([]*Conn, 0, len(addrs))
	for _, addr := range addrs {
		c, err := Dial(ctx, addr, opts)
		if err != nil {
			for _, open := range conns {
				err = multierr.Append(err, open.Close())
			}
			return nil, err
		}
		conns = append(conns, c)
	}
	return NewPool(conns...), nil
}

// Conns returns the connections in order, for callers that want to fail
// over explicitly.
func (p *Pool) Conns() []*Conn { return append([]*Conn(nil), p.conns...) }

func (p *Pool) primary() (*Conn, error) {
	if len(p.conns) == 0 {
		return nil, poperr.Transportf("empty connection pool")
	}
	return p.conns[0], nil
}

func (p *Pool) Publish(ctx context.Context, ch types.Channel, msg message.Message) error {
	c, err := p.primary()
	if err != nil {
		return err
	}
	return c.Publish(ctx, ch, msg)
}

func (p *Pool) Subscribe(ctx context.Context, ch types.Channel) error {
	c, err := p.primary()
	if err != nil {
		return err
	}
	return c.Subscribe(ctx, ch)
}

func (p *Pool) Unsubscribe(ctx context.Context, ch types.Channel) error {
	c, err := p.primary()
	if err != nil {
		return err
	}
	return c.Unsubscribe(ctx, ch)
}

func (p *Pool) Catchup(ctx context.Context, ch types.Channel) ([]json.RawMessage, error) {
	c, err := p.primary()
	if err != nil {
		return nil, err
	}
	return c.Catchup(ctx, ch)
}

// Broadcasts returns the primary connection's broadcasts, or a closed
// channel for an empty pool.
func (p *Pool) Broadcasts() <-chan types.Broadcast {
	c, err := p.primary()
	if err != nil {
		ch := make(chan types.Broadcast)
		close(ch)
		return ch
	}
	return c.Broadcasts()
}

// Close closes every connection and combines their errors.
func (p *Pool) Close() error {
	var err error
	for _, c := range p.conns {
		err = multierr.Append(err, c.Close())
	}
	return err
}
