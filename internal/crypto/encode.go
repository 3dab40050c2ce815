package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"popclient/internal/poperr"
)

// B64 returns padded base64url encoding, the text form used on the wire.
func B64(b []byte) string { return base64.URLEncoding.EncodeToString(b) }

// DecodeB64 decodes padded or unpadded base64url.
func DecodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		b, err := base64.URLEncoding.Strict().DecodeString(s)
		if err != nil {
			return nil, poperr.WrapDecode(err, "base64url %q", abbreviate(s))
		}
		return b, nil
	}
	b, err := base64.RawURLEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, poperr.WrapDecode(err, "base64url %q", abbreviate(s))
	}
	return b, nil
}

// Base64URLData is a byte string carried as base64url text.
type Base64URLData struct {
	raw string
}

// EncodeBase64URL wraps UTF-8 text. Invalid UTF-8 is rejected.
func EncodeBase64URL(text string) (Base64URLData, error) {
	if !utf8.ValidString(text) {
		return Base64URLData{}, poperr.Decodef("text is not valid UTF-8")
	}
	return Base64URLData{raw: text}, nil
}

// Base64URLFromBytes wraps arbitrary bytes.
func Base64URLFromBytes(b []byte) Base64URLData {
	return Base64URLData{raw: string(b)}
}

// ParseBase64URL decodes the base64url text form.
func ParseBase64URL(s string) (Base64URLData, error) {
	b, err := DecodeB64(s)
	if err != nil {
		return Base64URLData{}, err
	}
	return Base64URLData{raw: string(b)}, nil
}

// String returns the base64url text form.
func (d Base64URLData) String() string { return B64([]byte(d.raw)) }

// Text returns the decoded content as a string.
func (d Base64URLData) Text() string { return d.raw }

// Bytes returns a copy of the decoded content.
func (d Base64URLData) Bytes() []byte { return []byte(d.raw) }

// Len returns the decoded length.
func (d Base64URLData) Len() int { return len(d.raw) }

// Equal compares decoded bytes.
func (d Base64URLData) Equal(o Base64URLData) bool {
	return bytes.Equal([]byte(d.raw), []byte(o.raw))
}

func (d Base64URLData) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Base64URLData) UnmarshalText(text []byte) error {
	parsed, err := ParseBase64URL(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func abbreviate(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}
