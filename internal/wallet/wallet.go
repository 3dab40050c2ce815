package wallet

import (
	"context"
	"strconv"
	"sync"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/sync/errgroup"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/poperr"
	"popclient/internal/util/memzero"
)

const (
	// Purpose and Account are the fixed path prefix.
	Purpose uint32 = 888
	Account uint32 = 0

	entropyBits = 128
)

// DefaultRecoveryWorkers bounds concurrent derivations in Recover.
const DefaultRecoveryWorkers = 4

// NewMnemonic returns a fresh 12-word English mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", poperr.WrapConfiguration(err, "system randomness")
	}
	defer memzero.Zero(entropy)
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", poperr.WrapConfiguration(err, "mnemonic")
	}
	return mnemonic, nil
}

// Wallet holds a BIP-39 seed.
type Wallet struct {
	mu   sync.RWMutex
	seed []byte
}

// FromMnemonic validates mnemonic and derives its seed with an empty
// passphrase.
func FromMnemonic(mnemonic string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, poperr.Decodef("invalid mnemonic")
	}
	return &Wallet{seed: bip39.NewSeed(mnemonic, "")}, nil
}

// FromSeed wraps a raw seed. The slice is copied.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, poperr.Decodef("seed must be 16 to 64 bytes, got %d", len(seed))
	}
	return &Wallet{seed: append([]byte(nil), seed...)}, nil
}

// IDPath splits the decoded id into 3-byte groups; each group becomes the
// index spelled by its byte values in decimal, e.g. {1, 2, 3} -> 123.
func IDPath(id crypto.Hash) []uint32 {
	b := id.Bytes()
	out := make([]uint32, 0, (len(b)+2)/3)
	for i := 0; i < len(b); i += 3 {
		var digits []byte
		for _, v := range b[i:min(i+3, len(b))] {
			digits = strconv.AppendUint(digits, uint64(v), 10)
		}
		n, _ := strconv.ParseUint(string(digits), 10, 32) // at most 255255255
		out = append(out, uint32(n))
	}
	return out
}

// Path is the full derivation path of the token for (lao, rollCall),
// without the hardened offset.
func Path(lao, rollCall crypto.Hash) []uint32 {
	path := []uint32{Purpose, Account}
	path = append(path, IDPath(lao)...)
	return append(path, IDPath(rollCall)...)
}

// Derive returns the PoP token of (lao, rollCall).
func (w *Wallet) Derive(lao, rollCall crypto.Hash) (crypto.KeyPair, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.seed == nil {
		return crypto.KeyPair{}, poperr.Configurationf("wallet is wiped")
	}
	return deriveKey(w.seed, Path(lao, rollCall))
}

// TokenKey names a token by the roll call it was used in.
type TokenKey struct {
	Lao      crypto.Hash
	RollCall crypto.Hash
}

// Recover derives the token of every attendance set and keeps those whose
// public key attended. Derivations run on up to workers goroutines; each
// writes its own slot and slots are merged once all finished.
func (w *Wallet) Recover(ctx context.Context, sets []types.Attendance, workers int) (map[TokenKey]crypto.KeyPair, error) {
	if workers <= 0 {
		workers = DefaultRecoveryWorkers
	}
	type slot struct {
		kp crypto.KeyPair
		ok bool
	}
	slots := make([]slot, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, set := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			kp, err := w.Derive(set.LaoID, set.RollCallID)
			if err != nil {
				return err
			}
			if set.Contains(kp.Public) {
				slots[i] = slot{kp: kp, ok: true}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, poperr.Classify(err, poperr.ErrProtocol)
	}

	out := make(map[TokenKey]crypto.KeyPair)
	for i, s := range slots {
		if s.ok {
			out[TokenKey{Lao: sets[i].LaoID, RollCall: sets[i].RollCallID}] = s.kp
		}
	}
	return out, nil
}

// Wipe zeroes the seed. Later derivations fail.
func (w *Wallet) Wipe() {
	w.mu.Lock()
	defer w.mu.Unlock()
	memzero.Zero(w.seed)
	w.seed = nil
}
