package message

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// Service sends and receives messages over a relay client.
//
// High-level flow:
//   - Publish: build and sign the envelope, hand it to the relay, then
//     accept it locally so the sender sees its own message without waiting
//     for the echo.
//   - Sync: subscribe and catch up on a channel. Broadcasts for that channel
//     that arrive meanwhile are held back and applied after the catchup
//     batch, so history is ingested before live traffic.
//   - Run: consume broadcasts until the relay closes or ctx ends.
type Service struct {
	relay     domain.RelayClient
	validator *message.Validator
	log       domain.MessageLog
	logger    zerolog.Logger

	mu      sync.Mutex
	syncing map[types.Channel][]types.Broadcast
}

// New constructs a Message Service over the given relay client.
func New(
	relay domain.RelayClient,
	validator *message.Validator,
	log domain.MessageLog,
	logger zerolog.Logger,
) *Service {
	return &Service{
		relay:     relay,
		validator: validator,
		log:       log,
		logger:    logger.With().Str("component", "messages").Logger(),
		syncing:   make(map[types.Channel][]types.Broadcast),
	}
}

// Publish signs data with signer and publishes it on ch.
func (s *Service) Publish(
	ctx context.Context,
	ch types.Channel,
	data message.Data,
	signer message.Signer,
) (message.Message, error) {
	msg, err := message.Build(data, signer)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.relay.Publish(ctx, ch, msg); err != nil {
		return message.Message{}, err
	}
	if _, err := s.accept(ch, msg); err != nil {
		return msg, err
	}
	s.logger.Debug().Str("channel", ch.String()).Str("id", msg.MessageID.Short()).
		Stringer("key", data.DataKey()).Msg("published")
	return msg, nil
}

// Sync subscribes to ch and ingests its history. Messages of the catchup
// batch that fail verification are logged and skipped.
func (s *Service) Sync(ctx context.Context, ch types.Channel) error {
	s.mu.Lock()
	if _, ok := s.syncing[ch]; !ok {
		s.syncing[ch] = []types.Broadcast{}
	}
	s.mu.Unlock()
	defer s.flush(ch)

	if err := s.relay.Subscribe(ctx, ch); err != nil {
		return err
	}
	batch, err := s.relay.Catchup(ctx, ch)
	if err != nil {
		return err
	}
	accepted := 0
	for i, raw := range batch {
		fresh, err := s.Accept(ch, raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("channel", ch.String()).Int("index", i).
				Msg("rejected catchup message")
			continue
		}
		if fresh {
			accepted++
		}
	}
	s.logger.Info().Str("channel", ch.String()).Int("received", len(batch)).Int("accepted", accepted).Msg("synced")
	return nil
}

// flush applies the broadcasts held back while ch was syncing, in arrival
// order, then stops holding.
func (s *Service) flush(ch types.Channel) {
	for {
		s.mu.Lock()
		pending := s.syncing[ch]
		if len(pending) == 0 {
			delete(s.syncing, ch)
			s.mu.Unlock()
			return
		}
		s.syncing[ch] = []types.Broadcast{}
		s.mu.Unlock()
		for _, b := range pending {
			s.apply(b)
		}
	}
}

// Run consumes broadcasts until the relay closes them or ctx ends.
func (s *Service) Run(ctx context.Context) error {
	broadcasts := s.relay.Broadcasts()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-broadcasts:
			if !ok {
				return nil
			}
			s.HandleBroadcast(b)
		}
	}
}

// HandleBroadcast accepts b, or holds it back while its channel is syncing.
func (s *Service) HandleBroadcast(b types.Broadcast) {
	s.mu.Lock()
	if pending, ok := s.syncing[b.Channel]; ok {
		s.syncing[b.Channel] = append(pending, b)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.apply(b)
}

func (s *Service) apply(b types.Broadcast) {
	if _, err := s.Accept(b.Channel, b.Message); err != nil {
		s.logger.Warn().Err(err).Str("channel", b.Channel.String()).Msg("rejected broadcast")
	}
}

// Accept parses and verifies a wire message and appends it to the log. It
// reports whether the message was new.
func (s *Service) Accept(ch types.Channel, raw []byte) (bool, error) {
	msg, err := message.ParseMessage(raw)
	if err != nil {
		return false, err
	}
	return s.accept(ch, msg)
}

func (s *Service) accept(ch types.Channel, msg message.Message) (bool, error) {
	if _, err := s.validator.Verify(msg); err != nil {
		return false, err
	}
	return s.log.Append(ch, msg)
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
