package crypto

import (
	"crypto/sha256"
	"strconv"

	"popclient/internal/poperr"
)

// HashSize is the digest length in bytes.
const HashSize = sha256.Size

// Hash is a SHA-256 digest rendered as base64url.
type Hash struct {
	b [HashSize]byte
}

// HashStrings hashes an ordered sequence of strings. Each part is preceded by
// its UTF-8 byte length in decimal so that part boundaries are unambiguous.
func HashStrings(parts ...string) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte(p))
	}
	var out Hash
	copy(out.b[:], h.Sum(nil))
	return out
}

// ParseHash decodes a base64url digest.
func ParseHash(s string) (Hash, error) {
	b, err := DecodeB64(s)
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b)
}

// HashFromBytes wraps a raw digest.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, poperr.Decodef("hash: want %d bytes, got %d", HashSize, len(b))
	}
	var out Hash
	copy(out.b[:], b)
	return out, nil
}

func (h Hash) String() string { return B64(h.b[:]) }

// Bytes returns a copy of the digest.
func (h Hash) Bytes() []byte { return append([]byte(nil), h.b[:]...) }

// Equal compares digests byte-wise.
func (h Hash) Equal(o Hash) bool { return h.b == o.b }

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool { return h.b == [HashSize]byte{} }

// Short returns a prefix of the text form for logs.
func (h Hash) Short() string { return h.String()[:8] }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
