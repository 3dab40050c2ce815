package message

import (
	"bytes"
	"encoding/json"
	"strconv"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// Ballot versions.
const (
	OpenBallot   = "OPEN_BALLOT"
	SecretBallot = "SECRET_BALLOT"
)

// Voting methods.
const (
	Plurality = "Plurality"
	Approval  = "Approval"
)

// ElectionID is the defining hash of an election.
func ElectionID(lao crypto.Hash, createdAt int64, name string) crypto.Hash {
	return crypto.HashStrings("Election", lao.String(), ts(createdAt), name)
}

// QuestionID is the defining hash of an election question.
func QuestionID(election crypto.Hash, question string) crypto.Hash {
	return crypto.HashStrings("Question", election.String(), question)
}

// VoteID is the defining hash of a vote. value is the ballot index for open
// ballots and the encrypted vote for secret ballots.
func VoteID(election, question crypto.Hash, value string) crypto.Hash {
	return crypto.HashStrings("Vote", election.String(), question.String(), value)
}

// Question is one election question.
type Question struct {
	ID            crypto.Hash `json:"id" validate:"required"`
	Question      string      `json:"question" validate:"required"`
	VotingMethod  string      `json:"voting_method" validate:"required,oneof=Plurality Approval"`
	BallotOptions []string    `json:"ballot_options" validate:"required,min=2,unique,dive,required"`
	WriteIn       bool        `json:"write_in"`
}

// SetupElection is election#setup.
type SetupElection struct {
	Header
	ID        crypto.Hash `json:"id" validate:"required"`
	Lao       crypto.Hash `json:"lao" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Version   string      `json:"version" validate:"required,oneof=OPEN_BALLOT SECRET_BALLOT"`
	CreatedAt int64       `json:"created_at" validate:"required"`
	StartTime int64       `json:"start_time" validate:"required"`
	EndTime   int64       `json:"end_time" validate:"required"`
	Questions []Question  `json:"questions" validate:"required,min=1,dive"`
}

// NewSetupElection fills in election and question ids.
func NewSetupElection(lao crypto.Hash, name, version string, createdAt, start, end int64, questions []Question) *SetupElection {
	id := ElectionID(lao, createdAt, name)
	qs := make([]Question, len(questions))
	for i, q := range questions {
		q.ID = QuestionID(id, q.Question)
		qs[i] = q
	}
	return &SetupElection{
		Header:    HeaderFor(KeySetupElection),
		ID:        id,
		Lao:       lao,
		Name:      name,
		Version:   version,
		CreatedAt: createdAt,
		StartTime: start,
		EndTime:   end,
		Questions: qs,
	}
}

func (d *SetupElection) Validate() error {
	if !d.ID.Equal(ElectionID(d.Lao, d.CreatedAt, d.Name)) {
		return poperr.Protocolf("election id does not match lao, created_at and name")
	}
	if err := orderedTimes(d.CreatedAt, d.StartTime, d.EndTime); err != nil {
		return err
	}
	seen := make(map[crypto.Hash]struct{}, len(d.Questions))
	for _, q := range d.Questions {
		if !q.ID.Equal(QuestionID(d.ID, q.Question)) {
			return poperr.Protocolf("question id does not match %q", q.Question)
		}
		if _, ok := seen[q.ID]; ok {
			return poperr.Protocolf("duplicate question %q", q.Question)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// Question returns the question with the given id.
func (d *SetupElection) Question(id crypto.Hash) (Question, bool) {
	for _, q := range d.Questions {
		if q.ID.Equal(id) {
			return q, true
		}
	}
	return Question{}, false
}

// OpenElection is election#open.
type OpenElection struct {
	Header
	Lao      crypto.Hash `json:"lao" validate:"required"`
	Election crypto.Hash `json:"election" validate:"required"`
	OpenedAt int64       `json:"opened_at" validate:"required"`
}

func (d *OpenElection) TargetID() crypto.Hash { return d.Election }

// VoteValue is either a ballot option index (open ballot) or an encrypted
// vote (secret ballot).
type VoteValue struct {
	Index     int
	Encrypted string
	secret    bool
}

// IndexVote returns an open ballot vote.
func IndexVote(i int) VoteValue { return VoteValue{Index: i} }

// EncryptedVote returns a secret ballot vote.
func EncryptedVote(s string) VoteValue { return VoteValue{Encrypted: s, secret: true} }

// IsSecret reports whether v is an encrypted vote.
func (v VoteValue) IsSecret() bool { return v.secret }

func (v VoteValue) String() string {
	if v.secret {
		return v.Encrypted
	}
	return strconv.Itoa(v.Index)
}

func (v VoteValue) MarshalJSON() ([]byte, error) {
	if v.secret {
		return json.Marshal(v.Encrypted)
	}
	return json.Marshal(v.Index)
}

func (v *VoteValue) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = EncryptedVote(s)
		return nil
	}
	var i int
	if err := json.Unmarshal(b, &i); err != nil {
		return err
	}
	*v = IndexVote(i)
	return nil
}

// Vote is one answer in election#cast_vote.
type Vote struct {
	ID       crypto.Hash `json:"id" validate:"required"`
	Question crypto.Hash `json:"question" validate:"required"`
	Vote     VoteValue   `json:"vote"`
}

// NewVote fills in the vote id.
func NewVote(election, question crypto.Hash, v VoteValue) Vote {
	return Vote{ID: VoteID(election, question, v.String()), Question: question, Vote: v}
}

// CastVote is election#cast_vote.
type CastVote struct {
	Header
	Lao       crypto.Hash `json:"lao" validate:"required"`
	Election  crypto.Hash `json:"election" validate:"required"`
	CreatedAt int64       `json:"created_at" validate:"required"`
	Votes     []Vote      `json:"votes" validate:"required,min=1,dive"`
}

func (d *CastVote) Validate() error {
	seen := make(map[crypto.Hash]struct{}, len(d.Votes))
	for _, v := range d.Votes {
		if !v.ID.Equal(VoteID(d.Election, v.Question, v.Vote.String())) {
			return poperr.Protocolf("vote id does not match question %s", v.Question.Short())
		}
		if _, ok := seen[v.Question]; ok {
			return poperr.Protocolf("duplicate vote for question %s", v.Question.Short())
		}
		seen[v.Question] = struct{}{}
	}
	return nil
}

func (d *CastVote) TargetID() crypto.Hash { return d.Election }

// EndElection is election#end. RegisteredVotes hashes the sorted ids of the
// last vote of every voter.
type EndElection struct {
	Header
	Lao             crypto.Hash `json:"lao" validate:"required"`
	Election        crypto.Hash `json:"election" validate:"required"`
	CreatedAt       int64       `json:"created_at" validate:"required"`
	RegisteredVotes crypto.Hash `json:"registered_votes" validate:"required"`
}

func (d *EndElection) TargetID() crypto.Hash { return d.Election }

// BallotCount is the tally of one option.
type BallotCount struct {
	BallotOption string `json:"ballot_option" validate:"required"`
	Count        int    `json:"count" validate:"min=0"`
}

// QuestionResult is the tally of one question.
type QuestionResult struct {
	ID     crypto.Hash   `json:"id" validate:"required"`
	Result []BallotCount `json:"result" validate:"required,dive"`
}

// ElectionResult is election#result, published by the server on the
// election channel.
type ElectionResult struct {
	Header
	Questions []QuestionResult `json:"questions" validate:"required,min=1,dive"`
}
