package types

import (
	"strings"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// Channel is a hierarchical pub/sub path rooted at RootChannel.
type Channel string

// RootChannel is the well-known root of every channel.
const RootChannel Channel = "/root"

// Fixed channel segment names.
const (
	SocialSegment     = "social"
	ChirpsSegment     = "chirps"
	ReactionsSegment  = "reactions"
	CoinSegment       = "coin"
	FederationSegment = "federation"
	ConsensusSegment  = "consensus"
)

// ParseChannel validates a channel path.
func ParseChannel(s string) (Channel, error) {
	if s != string(RootChannel) && !strings.HasPrefix(s, string(RootChannel)+"/") {
		return "", poperr.Decodef("channel %q is not rooted at %s", s, RootChannel)
	}
	for _, seg := range strings.Split(s, "/")[1:] {
		if seg == "" {
			return "", poperr.Decodef("channel %q has an empty segment", s)
		}
	}
	return Channel(s), nil
}

// LaoChannel returns /root/<laoID>.
func LaoChannel(laoID crypto.Hash) Channel {
	return RootChannel.Child(laoID.String())
}

// Child appends segments.
func (c Channel) Child(segments ...string) Channel {
	if len(segments) == 0 {
		return c
	}
	return Channel(string(c) + "/" + strings.Join(segments, "/"))
}

// Segments returns the path segments below the root.
func (c Channel) Segments() []string {
	trimmed := strings.TrimPrefix(string(c), string(RootChannel))
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// LaoID extracts the LAO id of a LAO channel or any of its sub-channels.
func (c Channel) LaoID() (crypto.Hash, bool) {
	segs := c.Segments()
	if len(segs) == 0 {
		return crypto.Hash{}, false
	}
	id, err := crypto.ParseHash(segs[0])
	if err != nil {
		return crypto.Hash{}, false
	}
	return id, true
}

// IsRoot reports whether c is the root channel.
func (c Channel) IsRoot() bool { return c == RootChannel }

func (c Channel) String() string { return string(c) }

// UnmarshalText routes every decoded channel through ParseChannel.
func (c *Channel) UnmarshalText(b []byte) error {
	parsed, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ChirpsChannel is where chirp notifications of a LAO are published.
func ChirpsChannel(laoID crypto.Hash) Channel {
	return LaoChannel(laoID).Child(SocialSegment, ChirpsSegment)
}

// ReactionsChannel carries reactions of a LAO.
func ReactionsChannel(laoID crypto.Hash) Channel {
	return LaoChannel(laoID).Child(SocialSegment, ReactionsSegment)
}

// UserSocialChannel is the personal chirp channel of a PoP token.
func UserSocialChannel(laoID crypto.Hash, token crypto.PublicKey) Channel {
	return LaoChannel(laoID).Child(SocialSegment, token.String())
}

// CoinChannel carries digital cash transactions of a LAO.
func CoinChannel(laoID crypto.Hash) Channel {
	return LaoChannel(laoID).Child(CoinSegment)
}

// FederationChannel carries federation handshakes of a LAO.
func FederationChannel(laoID crypto.Hash) Channel {
	return LaoChannel(laoID).Child(FederationSegment)
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
