package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// Schema maps every (object, action) key to its payload type.
type Schema struct {
	ctors    map[Key]func() Data
	validate *validator.Validate
}

// NewSchema returns the schema of every supported payload.
func NewSchema() *Schema {
	s := &Schema{ctors: make(map[Key]func() Data), validate: newValidate()}
	s.add(KeyCreateLao, func() Data { return new(CreateLao) })
	s.add(KeyUpdateLao, func() Data { return new(UpdateLao) })
	s.add(KeyStateLao, func() Data { return new(StateLao) })
	s.add(KeyGreetLao, func() Data { return new(GreetLao) })
	s.add(KeyCreateMeeting, func() Data { return new(CreateMeeting) })
	s.add(KeyStateMeeting, func() Data { return new(StateMeeting) })
	s.add(KeyCreateRollCall, func() Data { return new(CreateRollCall) })
	s.add(KeyOpenRollCall, func() Data { return new(OpenRollCall) })
	s.add(KeyReopenRollCall, func() Data { return new(OpenRollCall) })
	s.add(KeyCloseRollCall, func() Data { return new(CloseRollCall) })
	s.add(KeySetupElection, func() Data { return new(SetupElection) })
	s.add(KeyOpenElection, func() Data { return new(OpenElection) })
	s.add(KeyCastVote, func() Data { return new(CastVote) })
	s.add(KeyEndElection, func() Data { return new(EndElection) })
	s.add(KeyElectionResult, func() Data { return new(ElectionResult) })
	s.add(KeyWitnessMessage, func() Data { return new(WitnessMessage) })
	s.add(KeyAddChirp, func() Data { return new(AddChirp) })
	s.add(KeyDeleteChirp, func() Data { return new(DeleteChirp) })
	s.add(KeyNotifyAddChirp, func() Data { return new(NotifyChirp) })
	s.add(KeyNotifyDeleteChirp, func() Data { return new(NotifyChirp) })
	s.add(KeyAddReaction, func() Data { return new(AddReaction) })
	s.add(KeyDeleteReaction, func() Data { return new(DeleteReaction) })
	s.add(KeyPostTransaction, func() Data { return new(PostTransaction) })
	s.add(KeyChallengeRequest, func() Data { return new(ChallengeRequest) })
	s.add(KeyChallenge, func() Data { return new(Challenge) })
	s.add(KeyFederationExpect, func() Data { return new(FederationExpect) })
	s.add(KeyFederationInit, func() Data { return new(FederationInit) })
	s.add(KeyFederationResult, func() Data { return new(FederationResult) })
	return s
}

func (s *Schema) add(k Key, ctor func() Data) { s.ctors[k] = ctor }

// Keys lists the registered keys in a stable order.
func (s *Schema) Keys() []Key {
	keys := make([]Key, 0, len(s.ctors))
	for k := range s.ctors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Has reports whether k is a known key.
func (s *Schema) Has(k Key) bool {
	_, ok := s.ctors[k]
	return ok
}

// Decode parses raw payload JSON into its typed struct. Shape problems are
// SchemaErrors; semantic checks of the payload are ProtocolErrors.
func (s *Schema) Decode(raw []byte) (Data, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || !json.Valid(raw) {
			return nil, poperr.WrapDecode(err, "data")
		}
		return nil, poperr.WrapSchema(err, "data header")
	}
	k := h.DataKey()
	ctor, ok := s.ctors[k]
	if !ok {
		return nil, poperr.Schemaf("unknown data type %s", k)
	}
	d := ctor()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(d); err != nil {
		if poperr.KindOf(err) != nil {
			return nil, err
		}
		return nil, poperr.WrapSchema(err, "%s", k)
	}
	if dec.More() {
		return nil, poperr.Schemaf("%s: trailing data", k)
	}
	if err := s.validate.Struct(d); err != nil {
		return nil, poperr.WrapSchema(describe(err), "%s", k)
	}
	if v, ok := d.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, poperr.Classify(err, poperr.ErrProtocol)
		}
	}
	return d, nil
}

// Check validates a locally built payload the way Decode would.
func (s *Schema) Check(d Data) error {
	if !s.Has(d.DataKey()) {
		return poperr.Schemaf("unknown data type %s", d.DataKey())
	}
	if err := s.validate.Struct(d); err != nil {
		return poperr.WrapSchema(describe(err), "%s", d.DataKey())
	}
	if v, ok := d.(interface{ Validate() error }); ok {
		return poperr.Classify(v.Validate(), poperr.ErrProtocol)
	}
	return nil
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		type zeroer interface {
			IsZero() bool
			String() string
		}
		z, ok := f.Interface().(zeroer)
		if !ok || z.IsZero() {
			return ""
		}
		return z.String()
	}, crypto.Hash{}, crypto.PublicKey{}, crypto.Signature{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(crypto.Base64URLData)
		if !ok {
			return ""
		}
		return d.Text()
	}, crypto.Base64URLData{})
	return v
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Namespace() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
