package session

import (
	"context"

	"github.com/rs/zerolog"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/domain/types"
)

// Dialer opens a relay client over addrs, first address primary.
type Dialer func(ctx context.Context, addrs []string) (domain.RelayClient, error)

// Service opens sessions with LAO servers.
type Service struct {
	dial Dialer
	log  zerolog.Logger
}

// Session is an open connection to the servers of one LAO.
type Session struct {
	Lao   crypto.Hash
	Addrs []string
	Relay domain.RelayClient
}

// Close closes the relay connections.
func (s *Session) Close() error { return s.Relay.Close() }

// New constructs a Session Service using dial to reach servers.
func New(dial Dialer, logger zerolog.Logger) *Service {
	return &Service{dial: dial, log: logger.With().Str("component", "session").Logger()}
}

// Connect parses an untrusted connect payload and dials its servers in
// order. It does not retry and does not fall back to the next server.
func (s *Service) Connect(ctx context.Context, payload []byte) (*Session, error) {
	p, err := types.ParseConnectPayload(payload)
	if err != nil {
		return nil, err
	}
	addrs := p.Addresses()
	rc, err := s.dial(ctx, addrs)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("lao", p.LaoID().Short()).Strs("servers", addrs).Msg("connected")
	return &Session{Lao: p.LaoID(), Addrs: addrs, Relay: rc}, nil
}

// Channels lists the channels every member of lao follows, LAO channel
// first.
func Channels(lao crypto.Hash) []types.Channel {
	return []types.Channel{
		types.LaoChannel(lao),
		types.ChirpsChannel(lao),
		types.ReactionsChannel(lao),
		types.CoinChannel(lao),
		types.FederationChannel(lao),
	}
}

// Join syncs every channel of sess's LAO through msgs, in order, stopping
// at the first failure.
func (s *Service) Join(ctx context.Context, sess *Session, msgs domain.MessageService) error {
	for _, ch := range Channels(sess.Lao) {
		if err := msgs.Sync(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}
