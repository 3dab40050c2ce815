package store

import (
	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/domain/types"
)

// LaoStore persists witness and attendance sets per LAO.
type LaoStore struct {
	kv domain.KV
}

func NewLaoStore(kv domain.KV) *LaoStore { return &LaoStore{kv: kv} }

var _ domain.LaoStore = (*LaoStore)(nil)

func witnessesKey(lao crypto.Hash) string  { return "lao/" + lao.String() + "/witnesses" }
func attendanceKey(lao crypto.Hash) string { return "lao/" + lao.String() + "/attendance" }

func (s *LaoStore) SaveWitnesses(lao crypto.Hash, witnesses []crypto.PublicKey) error {
	if witnesses == nil {
		witnesses = []crypto.PublicKey{}
	}
	return s.kv.Set(witnessesKey(lao), witnesses)
}

func (s *LaoStore) Witnesses(lao crypto.Hash) ([]crypto.PublicKey, error) {
	var out []crypto.PublicKey
	_, err := s.kv.Get(witnessesKey(lao), &out)
	return out, err
}

// SaveAttendance records a, replacing an earlier set of the same roll call
// (a reopened roll call closes again with a new set).
func (s *LaoStore) SaveAttendance(a types.Attendance) error {
	var all []types.Attendance
	return s.kv.Update(attendanceKey(a.LaoID), &all, func(bool) (bool, error) {
		for i := range all {
			if all[i].RollCallID.Equal(a.RollCallID) {
				all[i] = a
				return true, nil
			}
		}
		all = append(all, a)
		return true, nil
	})
}

// Attendance returns every recorded set of lao, in close order.
func (s *LaoStore) Attendance(lao crypto.Hash) ([]types.Attendance, error) {
	var out []types.Attendance
	_, err := s.kv.Get(attendanceKey(lao), &out)
	return out, err
}
