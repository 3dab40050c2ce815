package message

import (
	"bytes"
	"encoding/json"
	"errors"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// Signer is anything that can sign on behalf of a public key: the root key
// pair or a PoP token.
type Signer interface {
	PublicKey() crypto.PublicKey
	Sign(data []byte) crypto.Signature
}

var _ Signer = crypto.KeyPair{}

// Message is the signed envelope exchanged on channels.
type Message struct {
	Data              crypto.Base64URLData `json:"data" validate:"required"`
	Sender            crypto.PublicKey     `json:"sender" validate:"required"`
	Signature         crypto.Signature     `json:"signature" validate:"required"`
	MessageID         crypto.Hash          `json:"message_id" validate:"required"`
	WitnessSignatures []WitnessSignature   `json:"witness_signatures" validate:"dive"`
}

// ComputeID returns Hash(data, signature) in their base64url forms.
func ComputeID(data crypto.Base64URLData, sig crypto.Signature) crypto.Hash {
	return crypto.HashStrings(data.String(), sig.String())
}

// Build serializes data, signs the serialized bytes with signer and derives
// the message id.
func Build(data Data, signer Signer) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, poperr.WrapSchema(err, "marshal %s", data.DataKey())
	}
	encoded := crypto.Base64URLFromBytes(raw)
	sig := signer.Sign(encoded.Bytes())
	return Message{
		Data:              encoded,
		Sender:            signer.PublicKey(),
		Signature:         sig,
		MessageID:         ComputeID(encoded, sig),
		WitnessSignatures: []WitnessSignature{},
	}, nil
}

// ParseMessage decodes a wire envelope. Malformed JSON or base64 is a
// DecodeError; a missing envelope field is a ProtocolError.
func ParseMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		if poperr.KindOf(err) != nil {
			return Message{}, err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Message{}, poperr.WrapDecode(err, "message field %s", typeErr.Field)
		}
		return Message{}, poperr.WrapDecode(err, "message")
	}
	if err := m.checkFields(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) checkFields() error {
	switch {
	case m.Data.Len() == 0:
		return poperr.Protocolf("message without data")
	case m.Sender.IsZero():
		return poperr.Protocolf("message without sender")
	case m.Signature.IsZero():
		return poperr.Protocolf("message without signature")
	case m.MessageID.IsZero():
		return poperr.Protocolf("message without message_id")
	}
	return nil
}

// Equal compares the signed part of two messages; witness signatures are
// ignored.
func (m Message) Equal(o Message) bool {
	return m.MessageID.Equal(o.MessageID) &&
		m.Sender.Equal(o.Sender) &&
		m.Signature.Equal(o.Signature) &&
		bytes.Equal(m.Data.Bytes(), o.Data.Bytes())
}

// AddWitnessSignature appends ws unless the witness already signed.
// It reports whether ws was added.
func (m *Message) AddWitnessSignature(ws WitnessSignature) bool {
	for _, have := range m.WitnessSignatures {
		if have.Witness.Equal(ws.Witness) {
			return false
		}
	}
	m.WitnessSignatures = append(m.WitnessSignatures, ws)
	return true
}
