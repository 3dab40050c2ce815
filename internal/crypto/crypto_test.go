package crypto_test

import (
	"crypto/sha256"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

func TestHashStrings_MatchesLengthPrefixedSHA256(t *testing.T) {
	parts := []string{"R", "héllo", ""}
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte(p))
	}
	want, err := crypto.HashFromBytes(h.Sum(nil))
	require.NoError(t, err)
	require.Equal(t, want, crypto.HashStrings(parts...))
}

func TestHashStrings_BoundariesMatter(t *testing.T) {
	require.NotEqual(t, crypto.HashStrings("ab", "c"), crypto.HashStrings("a", "bc"))
	require.NotEqual(t, crypto.HashStrings("a", "b"), crypto.HashStrings("b", "a"))
	require.NotEqual(t, crypto.HashStrings("a"), crypto.HashStrings("a", ""))
}

func TestHashStrings_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Digit-free parts: the length prefix is decimal, so parts made of
		// digits can be re-split into a different sequence.
		part := rapid.StringMatching(`[a-zé ]{0,12}`)
		a := rapid.SliceOf(part).Draw(t, "a")
		b := rapid.SliceOf(part).Draw(t, "b")

		if crypto.HashStrings(a...) != crypto.HashStrings(a...) {
			t.Fatalf("hash is not deterministic for %q", a)
		}
		if !equalSeq(a, b) && crypto.HashStrings(a...) == crypto.HashStrings(b...) {
			t.Fatalf("collision between %q and %q", a, b)
		}
	})
}

func TestParseHash_PaddingIsIrrelevant(t *testing.T) {
	h := crypto.HashStrings("lao")
	padded := h.String()
	unpadded := padded[:len(padded)-1]

	p1, err := crypto.ParseHash(padded)
	require.NoError(t, err)
	p2, err := crypto.ParseHash(unpadded)
	require.NoError(t, err)
	require.True(t, p1.Equal(p2))
	require.Equal(t, h, p1)
}

func TestParseHash_Malformed(t *testing.T) {
	_, err := crypto.ParseHash("not base64 !!")
	require.ErrorIs(t, err, poperr.ErrDecode)

	_, err = crypto.ParseHash(crypto.B64([]byte("short")))
	require.ErrorIs(t, err, poperr.ErrDecode)
}

func TestBase64URL_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		enc, err := crypto.EncodeBase64URL(s)
		if err != nil {
			t.Fatalf("encode %q: %v", s, err)
		}
		dec, err := crypto.ParseBase64URL(enc.String())
		if err != nil {
			t.Fatalf("parse %q: %v", enc.String(), err)
		}
		if dec.Text() != s {
			t.Fatalf("round trip: got %q want %q", dec.Text(), s)
		}
	})
}

func TestBase64URL_Errors(t *testing.T) {
	_, err := crypto.EncodeBase64URL(string([]byte{0xff, 0xfe}))
	require.ErrorIs(t, err, poperr.ErrDecode)

	_, err = crypto.ParseBase64URL("a+b/")
	require.ErrorIs(t, err, poperr.ErrDecode)
}

func TestSignVerify(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	data := []byte("chirp")
	sig := kp.Sign(data)

	require.True(t, sig.Verify(kp.Public, data))
	require.False(t, sig.Verify(other.Public, data))
	require.False(t, sig.Verify(kp.Public, []byte("chirp!")))

	raw := sig.Bytes()
	raw[0] ^= 0x01
	corrupted, err := crypto.ParseSignature(crypto.B64(raw))
	require.NoError(t, err)
	require.False(t, corrupted.Verify(kp.Public, data))

	require.False(t, sig.Verify(crypto.PublicKey{}, data))
}

func TestSignVerify_Properties(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		sig := kp.Sign(data)
		if !sig.Verify(kp.Public, data) {
			t.Fatalf("valid signature rejected")
		}
		altered := append(append([]byte(nil), data...), 0x00)
		if sig.Verify(kp.Public, altered) {
			t.Fatalf("signature accepted over altered data")
		}
	})
}

func TestKeyTextForms(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	pk, err := crypto.ParsePublicKey(kp.Public.String())
	require.NoError(t, err)
	require.True(t, pk.Equal(kp.Public))

	_, err = crypto.ParsePublicKey(crypto.B64([]byte{1, 2, 3}))
	require.ErrorIs(t, err, poperr.ErrDecode)

	require.Len(t, crypto.Fingerprint(kp.Public), 20)
}

func TestSealAndOpenPrivateKey(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	var kept []byte
	out, err := crypto.SealPrivateKey(kp.Private, func(seed []byte) ([]byte, error) {
		kept = seed
		return append([]byte(nil), seed...), nil
	})
	require.NoError(t, err)
	require.Equal(t, make([]byte, crypto.SeedSize), kept, "temporary seed copy must be wiped")

	reopened, err := crypto.OpenPrivateKey(out)
	require.NoError(t, err)
	require.True(t, reopened.Public.Equal(kp.Public))
}

func equalSeq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
