package interfaces

import (
	"context"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// IdentityService owns the root key pair and the wallet.
type IdentityService interface {
	Generate(passphrase string) (crypto.KeyPair, types.Fingerprint, error)
	LoadUnlocked(passphrase string) (crypto.KeyPair, error)
	Fingerprint(pub crypto.PublicKey) types.Fingerprint
	// Signer returns the PoP token for (lao, rollCall) when the wallet is
	// set up and the token attended, else the root key pair.
	Signer(passphrase string, lao, rollCall crypto.Hash) (message.Signer, error)
}

// MessageService publishes and receives messages.
type MessageService interface {
	Publish(ctx context.Context, ch types.Channel, data message.Data, signer message.Signer) (message.Message, error)
	Sync(ctx context.Context, ch types.Channel) error
	Accept(ch types.Channel, raw []byte) (bool, error)
}
