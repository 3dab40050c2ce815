package store

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"popclient/internal/poperr"
)

// keystoreFormatVersion is the current version of sealedBlob.
const keystoreFormatVersion = 1

// ErrWrongPassphrase is returned when a keystore entry does not open.
var ErrWrongPassphrase = poperr.Authenticationf("wrong passphrase or corrupted keystore")

// sealedBlob is a passphrase-encrypted keystore entry.
type sealedBlob struct {
	V      int    `json:"v"`
	Label  string `json:"label"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

const (
	// DefaultScryptCost is the scrypt N used for new keystore entries.
	DefaultScryptCost = 1 << 15
	// MinScryptCost is the cheapest accepted scrypt N.
	MinScryptCost = 1 << 10
)

// kdfParams are the scrypt cost parameters.
type kdfParams struct{ N, R, P int }

func defaultKDF() kdfParams { return kdfParams{N: DefaultScryptCost, R: 8, P: 1} }

// ValidScryptCost reports whether n is usable as scrypt N: a power of two
// no smaller than MinScryptCost.
func ValidScryptCost(n int) bool {
	return n >= MinScryptCost && n&(n-1) == 0
}

// seal encrypts raw under a key derived from passphrase. The label is bound
// as associated data so entries cannot be swapped.
func seal(passphrase, label string, raw []byte, kdf kdfParams) (sealedBlob, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return sealedBlob{}, poperr.WrapConfiguration(err, "system randomness")
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return sealedBlob{}, poperr.WrapConfiguration(err, "scrypt parameters")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return sealedBlob{}, poperr.WrapConfiguration(err, "keystore cipher")
	}
	var nonce [chacha20poly1305.NonceSize]byte // salt-bound key, one message per key
	return sealedBlob{
		V:      keystoreFormatVersion,
		Label:  label,
		Salt:   salt[:],
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: aead.Seal(nil, nonce[:], raw, additionalData(label, salt[:])),
	}, nil
}

// open decrypts b with passphrase.
func open(passphrase, label string, b sealedBlob) ([]byte, error) {
	if b.V > keystoreFormatVersion {
		return nil, poperr.Decodef("unsupported keystore version %d", b.V)
	}
	if b.Label != label {
		return nil, poperr.Decodef("keystore entry %q read as %q", b.Label, label)
	}
	key, err := scrypt.Key([]byte(passphrase), b.Salt, b.N, b.R, b.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, poperr.WrapDecode(err, "scrypt parameters")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, poperr.WrapDecode(err, "keystore cipher")
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], b.Cipher, additionalData(label, b.Salt))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func additionalData(label string, salt []byte) []byte {
	return append([]byte(label+":"), salt...)
}
