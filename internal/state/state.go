package state

import (
	"sync"

	"github.com/rs/zerolog"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// State is the organization state of every known LAO.
type State struct {
	laoStore domain.LaoStore
	aliases  domain.AliasStore
	log      zerolog.Logger

	mu        sync.RWMutex
	laos      map[crypto.Hash]*Lao
	witnesses *tracker
}

// New returns an empty state persisting through laoStore and aliases.
func New(laoStore domain.LaoStore, aliases domain.AliasStore, logger zerolog.Logger) *State {
	return &State{
		laoStore:  laoStore,
		aliases:   aliases,
		log:       logger.With().Str("component", "state").Logger(),
		laos:      make(map[crypto.Hash]*Lao),
		witnesses: newTracker(),
	}
}

// Register adds a handler for every message type to reg.
func (s *State) Register(reg *ingest.Registry) error {
	handlers := map[message.Key]ingest.Handler{
		message.KeyCreateLao:         s.createLao,
		message.KeyUpdateLao:         s.updateLao,
		message.KeyStateLao:          s.stateLao,
		message.KeyGreetLao:          s.greetLao,
		message.KeyCreateMeeting:     s.createMeeting,
		message.KeyStateMeeting:      s.stateMeeting,
		message.KeyCreateRollCall:    s.createRollCall,
		message.KeyOpenRollCall:      s.openRollCall,
		message.KeyReopenRollCall:    s.openRollCall,
		message.KeyCloseRollCall:     s.closeRollCall,
		message.KeySetupElection:     s.setupElection,
		message.KeyOpenElection:      s.openElection,
		message.KeyCastVote:          s.castVote,
		message.KeyEndElection:       s.endElection,
		message.KeyElectionResult:    s.electionResult,
		message.KeyWitnessMessage:    s.witnessMessage,
		message.KeyAddChirp:          s.addChirp,
		message.KeyDeleteChirp:       s.deleteChirp,
		message.KeyNotifyAddChirp:    s.notifyChirp,
		message.KeyNotifyDeleteChirp: s.notifyChirp,
		message.KeyAddReaction:       s.addReaction,
		message.KeyDeleteReaction:    s.deleteReaction,
		message.KeyPostTransaction:   s.postTransaction,
		message.KeyChallengeRequest:  s.challengeRequest,
		message.KeyChallenge:         s.challenge,
		message.KeyFederationExpect:  s.federationExpect,
		message.KeyFederationInit:    s.federationInit,
		message.KeyFederationResult:  s.federationResult,
	}
	for k, h := range handlers {
		if err := reg.Register(k, h); err != nil {
			return err
		}
	}
	return nil
}

// laoOf returns the LAO whose channel (or sub-channel) in arrived on.
// s.mu must be held.
func (s *State) laoOf(in ingest.Input) (*Lao, error) {
	id, ok := in.Channel.LaoID()
	if !ok {
		return nil, poperr.Protocolf("%s is not allowed on %s", in.Data.DataKey(), in.Channel)
	}
	l, ok := s.laos[id]
	if !ok {
		return nil, poperr.Protocolf("unknown lao %s", id.Short())
	}
	return l, nil
}

func requireOrganizer(l *Lao, in ingest.Input) error {
	if !in.Message.Sender.Equal(l.Organizer) {
		return poperr.Authenticationf("%s must be sent by the organizer", in.Data.DataKey())
	}
	return nil
}

// requireServer accepts the greeted server key or the organizer.
func requireServer(l *Lao, in ingest.Input) error {
	if in.Message.Sender.Equal(l.Organizer) || (!l.Server.IsZero() && in.Message.Sender.Equal(l.Server)) {
		return nil
	}
	return poperr.Authenticationf("%s must be sent by the server or the organizer", in.Data.DataKey())
}

// requireAttendee checks that sender is a PoP token of some closed roll
// call of l.
func (s *State) requireAttendee(l *Lao, sender crypto.PublicKey) error {
	sets, err := s.laoStore.Attendance(l.ID)
	if err != nil {
		return err
	}
	for _, a := range sets {
		if a.Contains(sender) {
			return nil
		}
	}
	return poperr.Authenticationf("sender %s is not a PoP token of lao %s", sender.String(), l.ID.Short())
}

func (s *State) alias(alias, target crypto.Hash) error {
	return s.aliases.SetAlias(alias, target)
}
