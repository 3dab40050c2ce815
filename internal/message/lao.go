package message

import (
	"popclient/internal/crypto"
	"popclient/internal/poperr"
)

// LaoID is the defining hash of a LAO.
func LaoID(organizer crypto.PublicKey, creation int64, name string) crypto.Hash {
	return crypto.HashStrings(organizer.String(), ts(creation), name)
}

// CreateLao is lao#create.
type CreateLao struct {
	Header
	ID        crypto.Hash        `json:"id" validate:"required"`
	Name      string             `json:"name" validate:"required"`
	Creation  int64              `json:"creation" validate:"required"`
	Organizer crypto.PublicKey   `json:"organizer" validate:"required"`
	Witnesses []crypto.PublicKey `json:"witnesses" validate:"required,dive,required"`
}

// NewCreateLao fills in the id.
func NewCreateLao(name string, organizer crypto.PublicKey, creation int64, witnesses []crypto.PublicKey) *CreateLao {
	return &CreateLao{
		Header:    HeaderFor(KeyCreateLao),
		ID:        LaoID(organizer, creation, name),
		Name:      name,
		Creation:  creation,
		Organizer: organizer,
		Witnesses: nonNilKeys(witnesses),
	}
}

func (d *CreateLao) Validate() error {
	if !d.ID.Equal(LaoID(d.Organizer, d.Creation, d.Name)) {
		return poperr.Protocolf("lao id does not match organizer, creation and name")
	}
	return uniqueKeys("witnesses", d.Witnesses)
}

// UpdateLao is lao#update_properties. The id is recomputed with the new
// name; checking it needs the stored organizer and creation time.
type UpdateLao struct {
	Header
	ID           crypto.Hash        `json:"id" validate:"required"`
	Name         string             `json:"name" validate:"required"`
	LastModified int64              `json:"last_modified" validate:"required"`
	Witnesses    []crypto.PublicKey `json:"witnesses" validate:"required,dive,required"`
}

func (d *UpdateLao) Validate() error { return uniqueKeys("witnesses", d.Witnesses) }

// StateLao is lao#state, the organizer's witnessed summary of a LAO.
type StateLao struct {
	Header
	ID                     crypto.Hash        `json:"id" validate:"required"`
	Name                   string             `json:"name" validate:"required"`
	Creation               int64              `json:"creation" validate:"required"`
	LastModified           int64              `json:"last_modified" validate:"required"`
	Organizer              crypto.PublicKey   `json:"organizer" validate:"required"`
	Witnesses              []crypto.PublicKey `json:"witnesses" validate:"required,dive,required"`
	ModificationID         crypto.Hash        `json:"modification_id" validate:"required"`
	ModificationSignatures []WitnessSignature `json:"modification_signatures" validate:"required,dive"`
}

func (d *StateLao) Validate() error {
	if d.LastModified < d.Creation {
		return poperr.Protocolf("last_modified before creation")
	}
	if !d.ID.Equal(LaoID(d.Organizer, d.Creation, d.Name)) {
		return poperr.Protocolf("lao id does not match organizer, creation and name")
	}
	return uniqueKeys("witnesses", d.Witnesses)
}

func (d *StateLao) TargetID() crypto.Hash { return d.ModificationID }

// Peer is a server address advertised in lao#greet.
type Peer struct {
	Address string `json:"address" validate:"required,url"`
}

// GreetLao is lao#greet, sent by the server on the LAO channel.
type GreetLao struct {
	Header
	Lao      crypto.Hash      `json:"lao" validate:"required"`
	Frontend crypto.PublicKey `json:"frontend" validate:"required"`
	Address  string           `json:"address" validate:"required,url"`
	Peers    []Peer           `json:"peers" validate:"required,dive"`
}

func uniqueKeys(field string, keys []crypto.PublicKey) error {
	seen := make(map[crypto.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return poperr.Protocolf("duplicate entry %s in %s", k.String(), field)
		}
		seen[k] = struct{}{}
	}
	return nil
}
