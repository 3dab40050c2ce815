package interfaces

import (
	"context"
	"encoding/json"

	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// RelayClient abstracts the pub/sub server the client talks to.
type RelayClient interface {
	Publish(ctx context.Context, ch types.Channel, msg message.Message) error
	Subscribe(ctx context.Context, ch types.Channel) error
	Unsubscribe(ctx context.Context, ch types.Channel) error
	Catchup(ctx context.Context, ch types.Channel) ([]json.RawMessage, error)
	Broadcasts() <-chan types.Broadcast
	Close() error
}
