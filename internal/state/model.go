package state

import (
	"popclient/internal/crypto"
	"popclient/internal/message"
)

// RollCallStatus is the lifecycle of a roll call.
type RollCallStatus int

const (
	RollCallCreated RollCallStatus = iota
	RollCallOpened
	RollCallClosed
)

func (s RollCallStatus) String() string {
	switch s {
	case RollCallCreated:
		return "created"
	case RollCallOpened:
		return "opened"
	case RollCallClosed:
		return "closed"
	}
	return "unknown"
}

// ElectionStatus is the lifecycle of an election.
type ElectionStatus int

const (
	ElectionSetup ElectionStatus = iota
	ElectionOpened
	ElectionEnded
	ElectionResulted
)

// Lao is one organization.
type Lao struct {
	ID           crypto.Hash
	Name         string
	Creation     int64
	LastModified int64
	Organizer    crypto.PublicKey
	Witnesses    []crypto.PublicKey

	// Server is the frontend key announced by lao#greet; it may sign
	// server-side messages such as election results.
	Server      crypto.PublicKey
	ServerAddr  string
	Peers       []string
	StateID     crypto.Hash // last witnessed lao#state message
	PendingSync map[crypto.Hash]*message.StateLao

	Meetings  map[crypto.Hash]*Meeting
	RollCalls map[crypto.Hash]*RollCall
	Elections map[crypto.Hash]*Election
	Chirps    map[crypto.Hash]*Chirp
	Reactions map[crypto.Hash]*Reaction
	Feed      []FeedEntry
	Ledger    *Ledger
	Federation
}

func newLao(d *message.CreateLao) *Lao {
	return &Lao{
		ID:           d.ID,
		Name:         d.Name,
		Creation:     d.Creation,
		LastModified: d.Creation,
		Organizer:    d.Organizer,
		Witnesses:    append([]crypto.PublicKey(nil), d.Witnesses...),
		PendingSync:  make(map[crypto.Hash]*message.StateLao),
		Meetings:     make(map[crypto.Hash]*Meeting),
		RollCalls:    make(map[crypto.Hash]*RollCall),
		Elections:    make(map[crypto.Hash]*Election),
		Chirps:       make(map[crypto.Hash]*Chirp),
		Reactions:    make(map[crypto.Hash]*Reaction),
		Ledger:       newLedger(),
	}
}

// Meeting is a scheduled meeting.
type Meeting struct {
	ID           crypto.Hash
	Name         string
	Creation     int64
	LastModified int64
	Location     string
	Start        int64
	End          int64
}

// RollCall is a roll call and, once closed, its attendance set.
type RollCall struct {
	ID            crypto.Hash
	Name          string
	Creation      int64
	ProposedStart int64
	ProposedEnd   int64
	Location      string
	Description   string

	Status    RollCallStatus
	OpenedAt  int64
	ClosedAt  int64
	Attendees []crypto.PublicKey
	// CloseMessage is the id of the last roll_call#close; Witnessed is
	// set once it reaches quorum.
	CloseMessage crypto.Hash
	Witnessed    bool
}

// Ballot is the latest set of votes of one voter.
type Ballot struct {
	MessageID crypto.Hash
	CreatedAt int64
	Votes     []message.Vote
}

// Election is an election and its ballots.
type Election struct {
	Setup   message.SetupElection
	Status  ElectionStatus
	Opened  int64
	Ballots map[crypto.PublicKey]Ballot
	Results []message.QuestionResult
}

// Chirp is a social post.
type Chirp struct {
	ID        crypto.Hash
	Sender    crypto.PublicKey
	Text      string
	ParentID  *crypto.Hash
	Timestamp int64
	Deleted   bool
}

// Reaction is a reaction to a chirp.
type Reaction struct {
	ID        crypto.Hash
	ChirpID   crypto.Hash
	Sender    crypto.PublicKey
	Codepoint string
	Timestamp int64
	Deleted   bool
}

// FeedEntry is a server notification on the LAO-wide chirps channel.
type FeedEntry struct {
	ChirpID   crypto.Hash
	Channel   string
	Timestamp int64
	Deleted   bool
}

// Federation tracks the federation handshake of a LAO.
type Federation struct {
	ChallengeRequested int64
	Challenge          *message.Challenge
	Expected           []message.FederationExpect
	Initiated          []message.FederationInit
	Results            []message.FederationResult
}
