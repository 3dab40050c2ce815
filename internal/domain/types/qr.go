package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

var validate = validator.New()

// ConnectPayload is the out-of-band "connect to this organization" QR content.
// Exactly one of Server and Servers is set.
type ConnectPayload struct {
	Server  string   `json:"server,omitempty" validate:"omitempty,url"`
	Servers []string `json:"servers,omitempty" validate:"omitempty,dive,url"`
	Lao     string   `json:"lao" validate:"required"`
}

// ParseConnectPayload decodes and validates untrusted connect payload bytes.
func ParseConnectPayload(raw []byte) (ConnectPayload, error) {
	var p ConnectPayload
	if err := decodeStrict(raw, &p); err != nil {
		return ConnectPayload{}, err
	}
	if (p.Server == "") == (len(p.Servers) == 0) {
		return ConnectPayload{}, poperr.Schemaf("connect payload: exactly one of server and servers is required")
	}
	if err := validate.Struct(p); err != nil {
		return ConnectPayload{}, poperr.WrapSchema(err, "connect payload")
	}
	if _, err := crypto.ParseHash(p.Lao); err != nil {
		return ConnectPayload{}, err
	}
	return p, nil
}

// Addresses returns the server addresses in preference order.
func (p ConnectPayload) Addresses() []string {
	if p.Server != "" {
		return []string{p.Server}
	}
	return append([]string(nil), p.Servers...)
}

// LaoID returns the decoded LAO id. The payload must come from
// ParseConnectPayload.
func (p ConnectPayload) LaoID() crypto.Hash {
	id, _ := crypto.ParseHash(p.Lao)
	return id
}

// PopTokenPayload hands a PoP token public key to an organizer's scanner.
type PopTokenPayload struct {
	PopToken string `json:"pop_token" validate:"required"`
}

// ParsePopTokenPayload decodes and validates untrusted token payload bytes.
func ParsePopTokenPayload(raw []byte) (crypto.PublicKey, error) {
	var p PopTokenPayload
	if err := decodeStrict(raw, &p); err != nil {
		return crypto.PublicKey{}, err
	}
	if err := validate.Struct(p); err != nil {
		return crypto.PublicKey{}, poperr.WrapSchema(err, "pop token payload")
	}
	return crypto.ParsePublicKey(p.PopToken)
}

func decodeStrict(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) || strings.HasPrefix(err.Error(), "json: unknown field") {
			return poperr.WrapSchema(err, "qr payload")
		}
		return poperr.WrapDecode(err, "qr payload")
	}
	if dec.More() {
		return poperr.Decodef("qr payload: trailing data")
	}
	return nil
}
