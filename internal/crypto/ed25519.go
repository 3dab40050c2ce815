package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"popclient/internal/poperr"
	"popclient/internal/util/memzero"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
	SeedSize      = ed25519.SeedSize
)

// PublicKey is an Ed25519 public key.
type PublicKey struct {
	b [PublicKeySize]byte
}

// ParsePublicKey decodes a base64url public key.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := DecodeB64(s)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromBytes(b)
}

// PublicKeyFromBytes validates and wraps raw key bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeySize {
		return PublicKey{}, poperr.Decodef("public key: want %d bytes, got %d", PublicKeySize, len(b))
	}
	var out PublicKey
	copy(out.b[:], b)
	return out, nil
}

func (k PublicKey) String() string { return B64(k.b[:]) }

// Bytes returns a copy of the key.
func (k PublicKey) Bytes() []byte { return append([]byte(nil), k.b[:]...) }

// Equal compares keys byte-wise.
func (k PublicKey) Equal(o PublicKey) bool { return k.b == o.b }

// IsZero reports whether k is the zero value.
func (k PublicKey) IsZero() bool { return k.b == [PublicKeySize]byte{} }

func (k PublicKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signature is a detached Ed25519 signature.
type Signature struct {
	b [SignatureSize]byte
}

// ParseSignature decodes a base64url signature.
func ParseSignature(s string) (Signature, error) {
	b, err := DecodeB64(s)
	if err != nil {
		return Signature{}, err
	}
	if len(b) != SignatureSize {
		return Signature{}, poperr.Decodef("signature: want %d bytes, got %d", SignatureSize, len(b))
	}
	var out Signature
	copy(out.b[:], b)
	return out, nil
}

// Verify reports whether s is a valid signature of data under pub. It never
// fails loudly: any mismatch or malformed input yields false.
func (s Signature) Verify(pub PublicKey, data []byte) bool {
	if pub.IsZero() {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub.b[:]), data, s.b[:])
}

func (s Signature) String() string { return B64(s.b[:]) }

// Bytes returns a copy of the signature.
func (s Signature) Bytes() []byte { return append([]byte(nil), s.b[:]...) }

// Equal compares signatures byte-wise.
func (s Signature) Equal(o Signature) bool { return s.b == o.b }

// IsZero reports whether s is the zero value.
func (s Signature) IsZero() bool { return s.b == [SignatureSize]byte{} }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PrivateKey is an Ed25519 signing key. Its bytes stay inside the value.
type PrivateKey struct {
	k ed25519.PrivateKey
}

// Sign signs data.
func (p PrivateKey) Sign(data []byte) Signature {
	var out Signature
	copy(out.b[:], ed25519.Sign(p.k, data))
	return out
}

// Public returns the matching public key.
func (p PrivateKey) Public() PublicKey {
	var out PublicKey
	copy(out.b[:], p.k[SeedSize:])
	return out
}

// Valid reports whether p holds key material.
func (p PrivateKey) Valid() bool { return len(p.k) == ed25519.PrivateKeySize }

// Wipe zeroes the key material in place.
func (p PrivateKey) Wipe() { memzero.Zero(p.k) }

// KeyPair is a public/private key pair. It implements the signer contract
// used when building messages.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair returns a fresh random key pair.
func GenerateKeyPair() (KeyPair, error) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, poperr.WrapConfiguration(err, "system randomness")
	}
	priv := PrivateKey{k: sk}
	return KeyPair{Public: priv.Public(), Private: priv}, nil
}

// KeyPairFromSeed expands a 32-byte Ed25519 seed.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != SeedSize {
		return KeyPair{}, poperr.Decodef("key seed: want %d bytes, got %d", SeedSize, len(seed))
	}
	priv := PrivateKey{k: ed25519.NewKeyFromSeed(seed)}
	return KeyPair{Public: priv.Public(), Private: priv}, nil
}

// PublicKey returns the public half.
func (kp KeyPair) PublicKey() PublicKey { return kp.Public }

// Sign signs data with the private half.
func (kp KeyPair) Sign(data []byte) Signature { return kp.Private.Sign(data) }

// SealPrivateKey hands a temporary copy of the key seed to seal and wipes it
// afterwards. It is the only way key bytes leave a PrivateKey.
func SealPrivateKey(p PrivateKey, seal func(seed []byte) ([]byte, error)) ([]byte, error) {
	if !p.Valid() {
		return nil, poperr.Decodef("private key is empty")
	}
	seed := append([]byte(nil), p.k.Seed()...)
	defer memzero.Zero(seed)
	return seal(seed)
}

// OpenPrivateKey rebuilds a key pair from a seed produced by SealPrivateKey's
// callback. The seed slice is wiped.
func OpenPrivateKey(seed []byte) (KeyPair, error) {
	defer memzero.Zero(seed)
	return KeyPairFromSeed(seed)
}
