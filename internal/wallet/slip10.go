package wallet

import (
	"strconv"
	"strings"

	"github.com/anyproto/go-slip10"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
	"popclient/internal/util/memzero"
)

// formatPath spells path as a SLIP-0010 path with every index hardened,
// e.g. m/888'/0'/123'.
func formatPath(path []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, i := range path {
		b.WriteString("/")
		b.WriteString(strconv.FormatUint(uint64(i), 10))
		b.WriteString("'")
	}
	return b.String()
}

// deriveKey walks path from the master node of seed and expands the
// resulting Ed25519 key.
func deriveKey(seed []byte, path []uint32) (crypto.KeyPair, error) {
	node, err := slip10.DeriveForPath(formatPath(path), seed)
	if err != nil {
		return crypto.KeyPair{}, poperr.WrapConfiguration(err, "derive %s", formatPath(path))
	}
	_, priv := node.Keypair()
	defer memzero.Zero(priv)
	return crypto.KeyPairFromSeed(priv.Seed())
}
