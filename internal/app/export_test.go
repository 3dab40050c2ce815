package app

import (
	"github.com/rs/zerolog"

	"popclient/internal/domain"
	"popclient/internal/store"
)

// NewTestWire builds a Wire over kv with cheap key derivation.
func NewTestWire(cfg Config, logger zerolog.Logger, kv domain.KV) (*Wire, error) {
	cfg.KeystoreCost = store.MinScryptCost
	return newWire(cfg, logger, kv)
}
