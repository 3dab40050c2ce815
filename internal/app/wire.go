package app

import (
	"context"

	"github.com/rs/zerolog"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/relay"
	identitysvc "popclient/internal/services/identity"
	sessionsvc "popclient/internal/services/session"
	"popclient/internal/state"
	"popclient/internal/store"
)

// Wire bundles all stores, services and the ingestion pipeline for the CLI.
type Wire struct {
	Config    Config
	Logger    zerolog.Logger
	KV        domain.KV
	Keystore  *store.Keystore
	Log       *store.MessageLog
	Laos      *store.LaoStore
	Validator *message.Validator
	State     *state.State
	Pipeline  *ingest.Pipeline
	Watcher   *ingest.Watcher
	Identity  *identitysvc.Service
	Sessions  *sessionsvc.Service
}

// NewWire constructs the dependency graph from cfg with file-backed
// stores under cfg.Home.
func NewWire(cfg Config, logger zerolog.Logger) (*Wire, error) {
	return newWire(cfg, logger, store.NewFileKV(cfg.Home))
}

func newWire(cfg Config, logger zerolog.Logger, kv domain.KV) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Stores
	ks := store.NewKeystore(kv, store.WithScryptCost(cfg.KeystoreCost))
	ml := store.NewMessageLog(kv)
	aliases := store.NewAliasStore(kv)
	laos := store.NewLaoStore(kv)

	// Validation and dispatch; the registry must cover every schema key.
	schema := message.NewSchema()
	validator, err := message.NewValidator(schema, cfg.VerifiedCacheSize)
	if err != nil {
		return nil, err
	}
	st := state.New(laos, aliases, logger)
	reg := ingest.NewRegistry()
	if err := st.Register(reg); err != nil {
		return nil, err
	}
	if err := reg.Seal(schema.Keys()); err != nil {
		return nil, err
	}
	pipeline := ingest.NewPipeline(reg, aliases, ingest.LogObserver{Log: logger.With().Str("component", "pipeline").Logger()})
	watcher := ingest.NewWatcher(ml, pipeline, schema, logger)

	// High-level services
	opts := relay.Options{Timeout: cfg.RequestTimeout, Logger: logger}
	dial := func(ctx context.Context, addrs []string) (domain.RelayClient, error) {
		return relay.DialPool(ctx, addrs, opts)
	}

	return &Wire{
		Config:    cfg,
		Logger:    logger,
		KV:        kv,
		Keystore:  ks,
		Log:       ml,
		Laos:      laos,
		Validator: validator,
		State:     st,
		Pipeline:  pipeline,
		Watcher:   watcher,
		Identity:  identitysvc.New(ks, laos, cfg.RecoveryWorkers),
		Sessions:  sessionsvc.New(dial, logger),
	}, nil
}

// Replay ingests the logged history of lao so State reflects what earlier
// runs received: root, then every logged channel of the LAO, parents first.
func (w *Wire) Replay(lao crypto.Hash) error {
	logged, err := w.Log.Channels(types.LaoChannel(lao))
	if err != nil {
		return err
	}
	return w.Watcher.Replay(append([]types.Channel{types.RootChannel}, logged...)...)
}

// Close stops the watcher and locks the wallet.
func (w *Wire) Close() error {
	w.Identity.Lock()
	return w.Watcher.Close()
}
