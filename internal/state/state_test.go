package state_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/ingest"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/state"
	"popclient/internal/store"
	"popclient/internal/wallet"
)

const (
	now      = int64(1700000000)
	mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

type recorder struct {
	mu     sync.Mutex
	failed []error
}

func (r *recorder) Applied(ingest.Input) {}

func (r *recorder) Failed(_ ingest.Input, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *recorder) take() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.failed
	r.failed = nil
	return out
}

type harness struct {
	t         *testing.T
	state     *state.State
	pipeline  *ingest.Pipeline
	validator *message.Validator
	rec       *recorder
	laoStore  *store.LaoStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv := store.NewMemoryKV()
	aliases := store.NewAliasStore(kv)
	laoStore := store.NewLaoStore(kv)
	st := state.New(laoStore, aliases, zerolog.Nop())

	schema := message.NewSchema()
	reg := ingest.NewRegistry()
	require.NoError(t, st.Register(reg))
	require.NoError(t, reg.Seal(schema.Keys()))

	v, err := message.NewValidator(schema, 64)
	require.NoError(t, err)
	rec := &recorder{}
	return &harness{
		t:         t,
		state:     st,
		pipeline:  ingest.NewPipeline(reg, aliases, rec),
		validator: v,
		rec:       rec,
		laoStore:  laoStore,
	}
}

// publish builds, verifies and ingests d.
func (h *harness) publish(ch types.Channel, d message.Data, signer message.Signer) message.Message {
	h.t.Helper()
	msg, err := message.Build(d, signer)
	require.NoError(h.t, err)
	h.ingest(ch, msg)
	return msg
}

func (h *harness) ingest(ch types.Channel, msg message.Message) bool {
	h.t.Helper()
	data, err := h.validator.Verify(msg)
	require.NoError(h.t, err)
	fresh, err := h.pipeline.Ingest(context.Background(), ch, msg, data)
	require.NoError(h.t, err)
	return fresh
}

func (h *harness) requireApplied() {
	h.t.Helper()
	require.Empty(h.t, h.rec.take())
}

func (h *harness) requireRejected(kind error) {
	h.t.Helper()
	errs := h.rec.take()
	require.Len(h.t, errs, 1)
	require.ErrorIs(h.t, errs[0], kind)
}

func keyPair(t *testing.T) crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func keyPairs(t *testing.T, n int) ([]crypto.KeyPair, []crypto.PublicKey) {
	t.Helper()
	kps := make([]crypto.KeyPair, n)
	pubs := make([]crypto.PublicKey, n)
	for i := range kps {
		kps[i] = keyPair(t)
		pubs[i] = kps[i].Public
	}
	return kps, pubs
}

// createLao publishes lao#create and returns its id.
func (h *harness) createLao(org crypto.KeyPair, witnesses []crypto.PublicKey) crypto.Hash {
	h.t.Helper()
	d := message.NewCreateLao("lao", org.Public, now, witnesses)
	h.publish(types.RootChannel, d, org)
	h.requireApplied()
	return d.ID
}

// rollCall runs a roll call to completion and returns its id and the close
// message.
func (h *harness) rollCall(org crypto.KeyPair, lao crypto.Hash, attendees []crypto.PublicKey) (crypto.Hash, message.Message) {
	h.t.Helper()
	ch := types.LaoChannel(lao)
	create := message.NewCreateRollCall(lao, "rc", now+1, now+2, now+3, "here")
	h.publish(ch, create, org)
	open := message.NewOpenRollCall(lao, create.ID, now+2, false)
	h.publish(ch, open, org)
	closeMsg := h.publish(ch, message.NewCloseRollCall(lao, open.UpdateID, now+3, attendees), org)
	h.requireApplied()
	return create.ID, closeMsg
}

func TestRollCall_Lifecycle(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	lao := h.createLao(org, nil)
	_, attendees := keyPairs(t, 2)

	rcID, closeMsg := h.rollCall(org, lao, attendees)
	rc, ok := h.state.RollCall(lao, rcID)
	require.True(t, ok)
	require.Equal(t, state.RollCallClosed, rc.Status)
	require.ElementsMatch(t, attendees, rc.Attendees)
	require.Equal(t, closeMsg.MessageID, rc.CloseMessage)
	require.True(t, rc.Witnessed, "no witnesses means trivially witnessed")

	sets, err := h.laoStore.Attendance(lao)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.True(t, sets[0].Contains(attendees[0]))

	// Reopen through the close step, then close again with one attendee.
	ch := types.LaoChannel(lao)
	closeData := message.NewCloseRollCall(lao, message.RollCallUpdateID(lao, rcID, now+2), now+3, attendees)
	reopen := message.NewOpenRollCall(lao, closeData.UpdateID, now+4, true)
	h.publish(ch, reopen, org)
	h.requireApplied()
	rc, _ = h.state.RollCall(lao, rcID)
	require.Equal(t, state.RollCallOpened, rc.Status)

	h.publish(ch, message.NewCloseRollCall(lao, reopen.UpdateID, now+5, attendees[:1]), org)
	h.requireApplied()
	rc, _ = h.state.RollCall(lao, rcID)
	require.Equal(t, state.RollCallClosed, rc.Status)
	require.Len(t, rc.Attendees, 1)
}

func TestRollCall_RequiresOrganizer(t *testing.T) {
	h := newHarness(t)
	org, mallory := keyPair(t), keyPair(t)
	lao := h.createLao(org, nil)

	h.publish(types.LaoChannel(lao), message.NewCreateRollCall(lao, "rc", now+1, now+2, now+3, "here"), mallory)
	h.requireRejected(poperr.ErrAuthentication)
}

func TestRollCall_WitnessQuorum(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	witnesses, pubs := keyPairs(t, 5)
	lao := h.createLao(org, pubs)
	ch := types.LaoChannel(lao)

	rcID, closeMsg := h.rollCall(org, lao, []crypto.PublicKey{keyPair(t).Public})
	rc, _ := h.state.RollCall(lao, rcID)
	require.False(t, rc.Witnessed)

	for _, w := range witnesses[:2] {
		h.publish(ch, message.NewWitnessMessage(closeMsg.MessageID, w), w)
	}
	h.requireApplied()
	require.Equal(t, 2, h.state.WitnessCount(closeMsg.MessageID))
	require.False(t, h.state.Witnessed(closeMsg.MessageID))

	// A stranger's signature is recorded but never counted.
	stranger := keyPair(t)
	h.publish(ch, message.NewWitnessMessage(closeMsg.MessageID, stranger), stranger)
	h.requireApplied()
	require.Equal(t, 2, h.state.WitnessCount(closeMsg.MessageID))
	require.False(t, h.state.Witnessed(closeMsg.MessageID))

	h.publish(ch, message.NewWitnessMessage(closeMsg.MessageID, witnesses[2]), witnesses[2])
	h.requireApplied()
	require.Equal(t, 3, h.state.WitnessCount(closeMsg.MessageID))
	require.True(t, h.state.Witnessed(closeMsg.MessageID))
	rc, _ = h.state.RollCall(lao, rcID)
	require.True(t, rc.Witnessed)
}

func TestWitness_SignatureForOtherMessageRejected(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	witnesses, pubs := keyPairs(t, 1)
	lao := h.createLao(org, pubs)
	_, closeMsg := h.rollCall(org, lao, []crypto.PublicKey{keyPair(t).Public})

	forged := message.NewWitnessMessage(closeMsg.MessageID, witnesses[0])
	forged.Signature = witnesses[0].Sign([]byte("something else"))
	h.publish(types.LaoChannel(lao), forged, witnesses[0])
	h.requireRejected(poperr.ErrAuthentication)
	require.False(t, h.state.Witnessed(closeMsg.MessageID))
}

func TestChirp_FromPoPToken(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	lao := h.createLao(org, nil)

	w, err := wallet.FromMnemonic(mnemonic)
	require.NoError(t, err)
	// The roll call id is known before the token is needed.
	rcID := message.RollCallID(lao, now+1, "rc")
	token, err := w.Derive(lao, rcID)
	require.NoError(t, err)
	got, _ := h.rollCall(org, lao, []crypto.PublicKey{token.Public})
	require.Equal(t, rcID, got)

	social := types.UserSocialChannel(lao, token.Public)
	chirp := h.publish(social, message.NewAddChirp("hello", nil, now+10), token)
	h.requireApplied()

	require.False(t, h.ingest(social, chirp), "replay is a no-op")
	chirps := h.state.Chirps(lao)
	require.Len(t, chirps, 1)
	require.Equal(t, chirp.MessageID, chirps[0].ID)
	require.Equal(t, "hello", chirps[0].Text)

	h.publish(social, &message.AddReaction{
		Header:            message.HeaderFor(message.KeyAddReaction),
		ReactionCodepoint: "👍",
		ChirpID:           chirp.MessageID,
		Timestamp:         now + 11,
	}, token)
	h.requireApplied()
	require.Len(t, h.state.Reactions(lao, chirp.MessageID), 1)

	h.publish(social, &message.DeleteChirp{
		Header:    message.HeaderFor(message.KeyDeleteChirp),
		ChirpID:   chirp.MessageID,
		Timestamp: now + 12,
	}, token)
	h.requireApplied()
	require.True(t, h.state.Chirps(lao)[0].Deleted)
}

func TestChirp_Rejections(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	lao := h.createLao(org, nil)
	attendee, outsider := keyPair(t), keyPair(t)
	h.rollCall(org, lao, []crypto.PublicKey{attendee.Public})

	h.publish(types.UserSocialChannel(lao, outsider.Public), message.NewAddChirp("hi", nil, now+10), outsider)
	h.requireRejected(poperr.ErrAuthentication)

	h.publish(types.UserSocialChannel(lao, outsider.Public), message.NewAddChirp("hi", nil, now+11), attendee)
	h.requireRejected(poperr.ErrProtocol)

	chirp := h.publish(types.UserSocialChannel(lao, attendee.Public), message.NewAddChirp("hi", nil, now+12), attendee)
	h.requireApplied()
	h.publish(types.UserSocialChannel(lao, outsider.Public), &message.DeleteChirp{
		Header:    message.HeaderFor(message.KeyDeleteChirp),
		ChirpID:   chirp.MessageID,
		Timestamp: now + 13,
	}, outsider)
	h.requireRejected(poperr.ErrAuthentication)
	require.False(t, h.state.Chirps(lao)[0].Deleted)
}

func TestReaction_ToChirpKnownOnlyFromFeed(t *testing.T) {
	h := newHarness(t)
	org, server := keyPair(t), keyPair(t)
	lao := h.createLao(org, nil)
	members, pubs := keyPairs(t, 2)
	alice, bob := members[0], members[1]
	h.rollCall(org, lao, pubs)
	h.publish(types.LaoChannel(lao), &message.GreetLao{
		Header:   message.HeaderFor(message.KeyGreetLao),
		Lao:      lao,
		Frontend: server.Public,
		Address:  "ws://localhost:9000/client",
		Peers:    []message.Peer{},
	}, server)
	h.requireApplied()

	// Bob's chirp lives on his own social channel, which this client does
	// not follow; only the server's notification arrives.
	bobs, err := message.Build(message.NewAddChirp("from bob", nil, now+10), bob)
	require.NoError(t, err)
	bobCh := types.UserSocialChannel(lao, bob.Public)
	h.publish(types.ChirpsChannel(lao), &message.NotifyChirp{
		Header:    message.HeaderFor(message.KeyNotifyAddChirp),
		ChirpID:   bobs.MessageID,
		Channel:   bobCh.String(),
		Timestamp: now + 10,
	}, server)
	h.requireApplied()
	require.Len(t, h.state.Feed(lao), 1)
	require.Empty(t, h.state.Chirps(lao))

	h.publish(types.ReactionsChannel(lao), &message.AddReaction{
		Header:            message.HeaderFor(message.KeyAddReaction),
		ReactionCodepoint: "👍",
		ChirpID:           bobs.MessageID,
		Timestamp:         now + 11,
	}, alice)
	h.requireApplied()
	reactions := h.state.Reactions(lao, bobs.MessageID)
	require.Len(t, reactions, 1)
	require.Equal(t, alice.Public, reactions[0].Sender)

	parent := bobs.MessageID
	h.publish(types.UserSocialChannel(lao, alice.Public), message.NewAddChirp("reply", &parent, now+12), alice)
	h.requireApplied()
	chirps := h.state.Chirps(lao)
	require.Len(t, chirps, 1)
	require.Equal(t, parent, *chirps[0].ParentID)
}

func TestElection_OpenBallot(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	lao := h.createLao(org, nil)
	voters, pubs := keyPairs(t, 2)
	h.rollCall(org, lao, pubs)

	setup := message.NewSetupElection(lao, "vote", message.OpenBallot, now+10, now+11, now+20, []message.Question{{
		Question:      "colour",
		VotingMethod:  message.Plurality,
		BallotOptions: []string{"red", "blue"},
	}})
	laoCh := types.LaoChannel(lao)
	h.publish(laoCh, setup, org)
	elCh := laoCh.Child(setup.ID.String())
	h.publish(elCh, &message.OpenElection{
		Header: message.HeaderFor(message.KeyOpenElection), Lao: lao, Election: setup.ID, OpenedAt: now + 11,
	}, org)
	h.requireApplied()

	q := setup.Questions[0].ID
	cast := func(v crypto.KeyPair, option int, at int64) {
		h.publish(elCh, &message.CastVote{
			Header:    message.HeaderFor(message.KeyCastVote),
			Lao:       lao,
			Election:  setup.ID,
			CreatedAt: at,
			Votes:     []message.Vote{message.NewVote(setup.ID, q, message.IndexVote(option))},
		}, v)
	}
	cast(voters[0], 0, now+12)
	cast(voters[1], 0, now+12)
	cast(voters[1], 1, now+13)
	h.requireApplied()

	cast(keyPair(t), 0, now+14)
	h.requireRejected(poperr.ErrAuthentication)
	cast(voters[0], 5, now+14)
	h.requireRejected(poperr.ErrProtocol)

	e, ok := h.state.Election(lao, setup.ID)
	require.True(t, ok)
	require.Len(t, e.Ballots, 2)
	require.Equal(t, 1, e.Ballots[voters[1].Public].Votes[0].Vote.Index)

	h.publish(elCh, &message.EndElection{
		Header:          message.HeaderFor(message.KeyEndElection),
		Lao:             lao,
		Election:        setup.ID,
		CreatedAt:       now + 20,
		RegisteredVotes: state.RegisteredVotes(&e),
	}, org)
	h.requireApplied()

	h.publish(elCh, &message.ElectionResult{
		Header: message.HeaderFor(message.KeyElectionResult),
		Questions: []message.QuestionResult{{ID: q, Result: []message.BallotCount{
			{BallotOption: "red", Count: 1}, {BallotOption: "blue", Count: 1},
		}}},
	}, org)
	h.requireApplied()
	e, _ = h.state.Election(lao, setup.ID)
	require.Equal(t, state.ElectionResulted, e.Status)
	require.Len(t, e.Results, 1)
}

func TestCoin_MintAndTransfer(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	lao := h.createLao(org, nil)
	alice, bob := keyPair(t), keyPair(t)
	coin := types.CoinChannel(lao)

	mint := message.Transaction{
		Inputs:  []message.TxInput{{TxOutHash: message.CoinbaseOutput}},
		Outputs: []message.TxOutput{{Value: 100, Script: message.LockScript{Type: message.ScriptP2PKH, PublicKeyHash: message.PublicKeyHash(alice.Public)}}},
	}
	mint.SignInputs(org)
	minted := message.NewPostTransaction(mint)
	h.publish(coin, minted, org)
	h.requireApplied()
	require.Equal(t, int64(100), h.state.Balance(lao, alice.Public))

	transfer := message.Transaction{
		Inputs: []message.TxInput{{TxOutHash: minted.TransactionID, TxOutIndex: 0}},
		Outputs: []message.TxOutput{
			{Value: 40, Script: message.LockScript{Type: message.ScriptP2PKH, PublicKeyHash: message.PublicKeyHash(bob.Public)}},
			{Value: 60, Script: message.LockScript{Type: message.ScriptP2PKH, PublicKeyHash: message.PublicKeyHash(alice.Public)}},
		},
	}
	transfer.SignInputs(alice)
	h.publish(coin, message.NewPostTransaction(transfer), alice)
	h.requireApplied()
	require.Equal(t, int64(60), h.state.Balance(lao, alice.Public))
	require.Equal(t, int64(40), h.state.Balance(lao, bob.Public))

	// The minted output is spent.
	again := message.Transaction{
		Inputs:   []message.TxInput{{TxOutHash: minted.TransactionID, TxOutIndex: 0}},
		Outputs:  []message.TxOutput{{Value: 1, Script: message.LockScript{Type: message.ScriptP2PKH, PublicKeyHash: message.PublicKeyHash(bob.Public)}}},
		LockTime: 1,
	}
	again.SignInputs(alice)
	h.publish(coin, message.NewPostTransaction(again), alice)
	h.requireRejected(poperr.ErrProtocol)

	forged := message.Transaction{
		Inputs:  []message.TxInput{{TxOutHash: message.CoinbaseOutput}},
		Outputs: []message.TxOutput{{Value: 1000, Script: message.LockScript{Type: message.ScriptP2PKH, PublicKeyHash: message.PublicKeyHash(bob.Public)}}},
	}
	forged.SignInputs(bob)
	h.publish(coin, message.NewPostTransaction(forged), bob)
	h.requireRejected(poperr.ErrAuthentication)
	require.Equal(t, int64(40), h.state.Balance(lao, bob.Public))
}

func TestLao_GreetAndQueries(t *testing.T) {
	h := newHarness(t)
	org, server := keyPair(t), keyPair(t)
	lao := h.createLao(org, nil)

	h.publish(types.LaoChannel(lao), &message.GreetLao{
		Header:   message.HeaderFor(message.KeyGreetLao),
		Lao:      lao,
		Frontend: server.Public,
		Address:  "ws://localhost:9000/client",
		Peers:    []message.Peer{},
	}, server)
	h.requireApplied()

	info, ok := h.state.Lao(lao)
	require.True(t, ok)
	require.Equal(t, "lao", info.Name)
	require.Equal(t, server.Public, info.Server)
	require.Equal(t, []crypto.Hash{lao}, h.state.Laos())

	_, ok = h.state.Lao(crypto.HashStrings("missing"))
	require.False(t, ok)
}

func TestLao_CreateChannels(t *testing.T) {
	h := newHarness(t)
	org := keyPair(t)
	d := message.NewCreateLao("lao", org.Public, now, nil)
	h.publish(types.LaoChannel(crypto.HashStrings("other")), d, org)
	h.requireRejected(poperr.ErrProtocol)
	_, ok := h.state.Lao(d.ID)
	require.False(t, ok)

	// Catchup on the LAO channel starts with the create message.
	d = message.NewCreateLao("lao", org.Public, now+1, nil)
	h.publish(types.LaoChannel(d.ID), d, org)
	h.requireApplied()
	_, ok = h.state.Lao(d.ID)
	require.True(t, ok)
}
