package message

import (
	"strconv"

	"popclient/internal/crypto"
)

// Object is the "object" field of message data.
type Object string

// Action is the "action" field of message data.
type Action string

const (
	ObjectLao        Object = "lao"
	ObjectMeeting    Object = "meeting"
	ObjectRollCall   Object = "roll_call"
	ObjectElection   Object = "election"
	ObjectMessage    Object = "message"
	ObjectChirp      Object = "chirp"
	ObjectReaction   Object = "reaction"
	ObjectCoin       Object = "coin"
	ObjectFederation Object = "federation"
)

const (
	ActionCreate           Action = "create"
	ActionUpdateProperties Action = "update_properties"
	ActionState            Action = "state"
	ActionGreet            Action = "greet"
	ActionOpen             Action = "open"
	ActionReopen           Action = "reopen"
	ActionClose            Action = "close"
	ActionSetup            Action = "setup"
	ActionCastVote         Action = "cast_vote"
	ActionEnd              Action = "end"
	ActionResult           Action = "result"
	ActionWitness          Action = "witness"
	ActionAdd              Action = "add"
	ActionDelete           Action = "delete"
	ActionNotifyAdd        Action = "notify_add"
	ActionNotifyDelete     Action = "notify_delete"
	ActionPostTransaction  Action = "post_transaction"
	ActionChallengeRequest Action = "challenge_request"
	ActionChallenge        Action = "challenge"
	ActionExpect           Action = "expect"
	ActionInit             Action = "init"
)

// Key identifies a data schema.
type Key struct {
	Object Object
	Action Action
}

func (k Key) String() string { return string(k.Object) + "#" + string(k.Action) }

// Keys of every supported payload.
var (
	KeyCreateLao         = Key{ObjectLao, ActionCreate}
	KeyUpdateLao         = Key{ObjectLao, ActionUpdateProperties}
	KeyStateLao          = Key{ObjectLao, ActionState}
	KeyGreetLao          = Key{ObjectLao, ActionGreet}
	KeyCreateMeeting     = Key{ObjectMeeting, ActionCreate}
	KeyStateMeeting      = Key{ObjectMeeting, ActionState}
	KeyCreateRollCall    = Key{ObjectRollCall, ActionCreate}
	KeyOpenRollCall      = Key{ObjectRollCall, ActionOpen}
	KeyReopenRollCall    = Key{ObjectRollCall, ActionReopen}
	KeyCloseRollCall     = Key{ObjectRollCall, ActionClose}
	KeySetupElection     = Key{ObjectElection, ActionSetup}
	KeyOpenElection      = Key{ObjectElection, ActionOpen}
	KeyCastVote          = Key{ObjectElection, ActionCastVote}
	KeyEndElection       = Key{ObjectElection, ActionEnd}
	KeyElectionResult    = Key{ObjectElection, ActionResult}
	KeyWitnessMessage    = Key{ObjectMessage, ActionWitness}
	KeyAddChirp          = Key{ObjectChirp, ActionAdd}
	KeyDeleteChirp       = Key{ObjectChirp, ActionDelete}
	KeyNotifyAddChirp    = Key{ObjectChirp, ActionNotifyAdd}
	KeyNotifyDeleteChirp = Key{ObjectChirp, ActionNotifyDelete}
	KeyAddReaction       = Key{ObjectReaction, ActionAdd}
	KeyDeleteReaction    = Key{ObjectReaction, ActionDelete}
	KeyPostTransaction   = Key{ObjectCoin, ActionPostTransaction}
	KeyChallengeRequest  = Key{ObjectFederation, ActionChallengeRequest}
	KeyChallenge         = Key{ObjectFederation, ActionChallenge}
	KeyFederationExpect  = Key{ObjectFederation, ActionExpect}
	KeyFederationInit    = Key{ObjectFederation, ActionInit}
	KeyFederationResult  = Key{ObjectFederation, ActionResult}
)

// Data is implemented by every payload type.
type Data interface {
	DataKey() Key
}

// Targeted payloads refer to an existing object (roll call, election, chirp,
// message). The ingestion pipeline resolves the target through the alias
// table before dispatch.
type Targeted interface {
	TargetID() crypto.Hash
}

// Header carries the object/action discriminator of every payload.
type Header struct {
	Object Object `json:"object" validate:"required"`
	Action Action `json:"action" validate:"required"`
}

// HeaderFor returns the header of key k.
func HeaderFor(k Key) Header { return Header{Object: k.Object, Action: k.Action} }

// DataKey returns the schema key.
func (h Header) DataKey() Key { return Key{Object: h.Object, Action: h.Action} }

// ts renders a timestamp the way it enters hashes.
func ts(t int64) string { return strconv.FormatInt(t, 10) }

func nonNilKeys(keys []crypto.PublicKey) []crypto.PublicKey {
	if keys == nil {
		return []crypto.PublicKey{}
	}
	return keys
}
