package message

import (
	"popclient/internal/crypto"
)

// WitnessSignature is a witness's signature over a message id.
type WitnessSignature struct {
	Witness   crypto.PublicKey `json:"witness" validate:"required"`
	Signature crypto.Signature `json:"signature" validate:"required"`
}

// SignWitness signs the decoded bytes of id.
func SignWitness(id crypto.Hash, signer Signer) WitnessSignature {
	return WitnessSignature{Witness: signer.PublicKey(), Signature: signer.Sign(id.Bytes())}
}

// Valid reports whether ws is a valid signature over id.
func (ws WitnessSignature) Valid(id crypto.Hash) bool {
	return ws.Signature.Verify(ws.Witness, id.Bytes())
}

// WitnessMessage is message#witness: the sender vouches for MessageID.
type WitnessMessage struct {
	Header
	MessageID crypto.Hash      `json:"message_id" validate:"required"`
	Signature crypto.Signature `json:"signature" validate:"required"`
}

// NewWitnessMessage signs id with signer.
func NewWitnessMessage(id crypto.Hash, signer Signer) *WitnessMessage {
	return &WitnessMessage{
		Header:    HeaderFor(KeyWitnessMessage),
		MessageID: id,
		Signature: signer.Sign(id.Bytes()),
	}
}

func (d *WitnessMessage) TargetID() crypto.Hash { return d.MessageID }
