package store

import (
	"encoding/json"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/poperr"
	"popclient/internal/util/memzero"
)

const (
	identityKey = "keystore/identity"
	mnemonicKey = "keystore/mnemonic"
)

// Keystore persists the root key pair and the wallet mnemonic, each sealed
// under the passphrase.
type Keystore struct {
	kv  domain.KV
	kdf kdfParams
}

// KeystoreOption tunes a Keystore.
type KeystoreOption func(*Keystore)

// WithScryptCost sets scrypt N for entries sealed from now on; existing
// entries keep the cost they were sealed with. Zero keeps the default.
func WithScryptCost(n int) KeystoreOption {
	return func(s *Keystore) {
		if n != 0 {
			s.kdf.N = n
		}
	}
}

// NewKeystore returns a Keystore on kv.
func NewKeystore(kv domain.KV, opts ...KeystoreOption) *Keystore {
	s := &Keystore{kv: kv, kdf: defaultKDF()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.IdentityStore = (*Keystore)(nil)

type storedIdentity struct {
	Public crypto.PublicKey `json:"public"`
	Seed   []byte           `json:"seed"`
}

// SaveIdentity seals kp. The private seed is wiped from memory once sealed.
func (s *Keystore) SaveIdentity(passphrase string, kp crypto.KeyPair) error {
	raw, err := crypto.SealPrivateKey(kp.Private, func(seed []byte) ([]byte, error) {
		b, err := json.Marshal(storedIdentity{Public: kp.Public, Seed: seed})
		if err != nil {
			return nil, poperr.WrapSchema(err, "identity")
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	b, err := seal(passphrase, identityKey, raw, s.kdf)
	memzero.Zero(raw)
	if err != nil {
		return err
	}
	return s.kv.Set(identityKey, b)
}

// LoadIdentity opens the stored key pair.
func (s *Keystore) LoadIdentity(passphrase string) (crypto.KeyPair, error) {
	raw, ok, err := s.load(passphrase, identityKey)
	if err != nil {
		return crypto.KeyPair{}, err
	}
	if !ok {
		return crypto.KeyPair{}, poperr.Configurationf("no identity, run init first")
	}
	defer memzero.Zero(raw)
	var id storedIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return crypto.KeyPair{}, poperr.WrapDecode(err, "identity")
	}
	kp, err := crypto.OpenPrivateKey(id.Seed)
	if err != nil {
		return crypto.KeyPair{}, err
	}
	if !kp.Public.Equal(id.Public) {
		return crypto.KeyPair{}, poperr.Authenticationf("stored public key does not match private key")
	}
	return kp, nil
}

func (s *Keystore) SaveMnemonic(passphrase, mnemonic string) error {
	b, err := seal(passphrase, mnemonicKey, []byte(mnemonic), s.kdf)
	if err != nil {
		return err
	}
	return s.kv.Set(mnemonicKey, b)
}

// LoadMnemonic reports false when no wallet was set up.
func (s *Keystore) LoadMnemonic(passphrase string) (string, bool, error) {
	raw, ok, err := s.load(passphrase, mnemonicKey)
	if err != nil || !ok {
		return "", false, err
	}
	defer memzero.Zero(raw)
	return string(raw), true, nil
}

// WipeMnemonic forgets the wallet.
func (s *Keystore) WipeMnemonic() error {
	return s.kv.Set(mnemonicKey, nil)
}

func (s *Keystore) load(passphrase, key string) ([]byte, bool, error) {
	var b *sealedBlob
	ok, err := s.kv.Get(key, &b)
	if err != nil {
		return nil, false, err
	}
	if !ok || b == nil {
		return nil, false, nil
	}
	raw, err := open(passphrase, key, *b)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}
