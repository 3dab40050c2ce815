package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/wallet"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = poperr.Configurationf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrNoWallet is returned when a wallet operation runs before a
	// mnemonic was created or imported.
	ErrNoWallet = poperr.Configurationf("wallet is not set up; run wallet new or wallet import")

	// ErrWrongPassphrase is returned when an unlocked wallet is used with a
	// passphrase other than the one that unlocked it.
	ErrWrongPassphrase = poperr.Authenticationf("wrong passphrase")
)

// Service manages the root key pair and the wallet using a backing store.
//
// The wallet is unlocked on first use and kept in memory until Lock. Later
// calls must present the same passphrase; only a keyed digest of it is kept.
type Service struct {
	store   domain.IdentityStore
	laos    domain.LaoStore
	workers int

	mu     sync.Mutex
	wallet *wallet.Wallet
	macKey [32]byte
	tag    []byte
}

// New returns an identity service backed by the given stores. workers bounds
// token recovery; zero picks wallet.DefaultRecoveryWorkers.
func New(s domain.IdentityStore, laos domain.LaoStore, workers int) *Service {
	return &Service{store: s, laos: laos, workers: workers}
}

// Generate creates a new root key pair, saves it encrypted with the
// passphrase, and returns it plus its fingerprint.
func (s *Service) Generate(passphrase string) (crypto.KeyPair, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return crypto.KeyPair{}, "", ErrWeakPassphrase
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.KeyPair{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, kp); err != nil {
		return crypto.KeyPair{}, "", err
	}
	return kp, s.Fingerprint(kp.Public), nil
}

// LoadUnlocked decrypts and returns the root key pair.
func (s *Service) LoadUnlocked(passphrase string) (crypto.KeyPair, error) {
	return s.store.LoadIdentity(passphrase)
}

// Fingerprint returns a short fingerprint of pub.
func (s *Service) Fingerprint(pub crypto.PublicKey) domain.Fingerprint {
	return domain.Fingerprint(crypto.Fingerprint(pub))
}

// NewWallet creates a mnemonic, stores it and returns it for the user to
// write down.
func (s *Service) NewWallet(passphrase string) (string, error) {
	mnemonic, err := wallet.NewMnemonic()
	if err != nil {
		return "", poperr.WrapConfiguration(err, "generate mnemonic")
	}
	if err := s.ImportWallet(passphrase, mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// ImportWallet validates and stores mnemonic, replacing any wallet.
func (s *Service) ImportWallet(passphrase, mnemonic string) error {
	if !isSecurePassphrase(passphrase) {
		return ErrWeakPassphrase
	}
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	w, err := wallet.FromMnemonic(mnemonic)
	if err != nil {
		return err
	}
	if err := s.store.SaveMnemonic(passphrase, mnemonic); err != nil {
		w.Wipe()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		s.wallet.Wipe()
		s.wallet = nil
	}
	return s.hold(w, passphrase)
}

// ExportMnemonic returns the stored mnemonic.
func (s *Service) ExportMnemonic(passphrase string) (string, error) {
	mnemonic, ok, err := s.store.LoadMnemonic(passphrase)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoWallet
	}
	return mnemonic, nil
}

// unlock returns the in-memory wallet, loading it from the store first.
func (s *Service) unlock(passphrase string) (*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		if subtle.ConstantTimeCompare(s.digest(passphrase), s.tag) != 1 {
			return nil, ErrWrongPassphrase
		}
		return s.wallet, nil
	}
	mnemonic, ok, err := s.store.LoadMnemonic(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoWallet
	}
	w, err := wallet.FromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	if err := s.hold(w, passphrase); err != nil {
		return nil, err
	}
	return w, nil
}

// hold keeps w unlocked for passphrase. s.mu must be held.
func (s *Service) hold(w *wallet.Wallet, passphrase string) error {
	if _, err := rand.Read(s.macKey[:]); err != nil {
		w.Wipe()
		return poperr.WrapConfiguration(err, "system randomness")
	}
	s.wallet = w
	s.tag = s.digest(passphrase)
	return nil
}

// digest is a keyed hash of passphrase under the session key. s.mu must be
// held.
func (s *Service) digest(passphrase string) []byte {
	h, _ := blake2b.New256(s.macKey[:]) // fails only for keys over 64 bytes
	h.Write([]byte(passphrase))
	return h.Sum(nil)
}

// Token derives the PoP token of (lao, rollCall).
func (s *Service) Token(passphrase string, lao, rollCall crypto.Hash) (crypto.KeyPair, error) {
	w, err := s.unlock(passphrase)
	if err != nil {
		return crypto.KeyPair{}, err
	}
	return w.Derive(lao, rollCall)
}

// RecoverTokens returns the tokens of every closed roll call of lao the
// wallet attended.
func (s *Service) RecoverTokens(ctx context.Context, passphrase string, lao crypto.Hash) (map[wallet.TokenKey]crypto.KeyPair, error) {
	w, err := s.unlock(passphrase)
	if err != nil {
		return nil, err
	}
	sets, err := s.laos.Attendance(lao)
	if err != nil {
		return nil, err
	}
	return w.Recover(ctx, sets, s.workers)
}

// Signer returns the PoP token for (lao, rollCall) when the wallet is set up
// and the token attended that roll call, else the root key pair.
func (s *Service) Signer(passphrase string, lao, rollCall crypto.Hash) (message.Signer, error) {
	token, err := s.Token(passphrase, lao, rollCall)
	switch {
	case err == nil:
		sets, err := s.laos.Attendance(lao)
		if err != nil {
			return nil, err
		}
		for _, a := range sets {
			if a.RollCallID.Equal(rollCall) && a.Contains(token.Public) {
				return token, nil
			}
		}
	case !errors.Is(err, ErrNoWallet):
		return nil, err
	}
	return s.LoadUnlocked(passphrase)
}

// Lock wipes the in-memory wallet. The stored mnemonic is kept.
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		s.wallet.Wipe()
		s.wallet = nil
	}
	s.macKey = [32]byte{}
	s.tag = nil
}

// ForgetWallet locks and deletes the stored mnemonic.
func (s *Service) ForgetWallet() error {
	s.Lock()
	return s.store.WipeMnemonic()
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
