package store

import (
	"popclient/internal/crypto"
	"popclient/internal/domain"
)

// AliasStore maps secondary ids to the object they act on.
type AliasStore struct {
	kv domain.KV
}

func NewAliasStore(kv domain.KV) *AliasStore { return &AliasStore{kv: kv} }

var _ domain.AliasStore = (*AliasStore)(nil)

func aliasKey(id crypto.Hash) string { return "alias/" + id.String() }

func (s *AliasStore) Resolve(id crypto.Hash) (crypto.Hash, bool, error) {
	var target crypto.Hash
	ok, err := s.kv.Get(aliasKey(id), &target)
	if err != nil || !ok {
		return crypto.Hash{}, false, err
	}
	return target, true, nil
}

// SetAlias points alias at target, flattening chains so Resolve is a single
// lookup.
func (s *AliasStore) SetAlias(alias, target crypto.Hash) error {
	if root, ok, err := s.Resolve(target); err != nil {
		return err
	} else if ok {
		target = root
	}
	return s.kv.Set(aliasKey(alias), target)
}
