package state

import (
	"maps"
	"slices"
	"sort"

	"popclient/internal/crypto"
)

// LaoInfo is a read-only summary of a LAO.
type LaoInfo struct {
	ID           crypto.Hash
	Name         string
	Creation     int64
	LastModified int64
	Organizer    crypto.PublicKey
	Witnesses    []crypto.PublicKey
	Server       crypto.PublicKey
	ServerAddr   string
	Peers        []string
	RollCalls    int
	Elections    int
	Chirps       int
}

// Laos returns the ids of every known LAO.
func (s *State) Laos() []crypto.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Collect(maps.Keys(s.laos))
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Lao returns a summary of the LAO id.
func (s *State) Lao(id crypto.Hash) (LaoInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[id]
	if !ok {
		return LaoInfo{}, false
	}
	return LaoInfo{
		ID:           l.ID,
		Name:         l.Name,
		Creation:     l.Creation,
		LastModified: l.LastModified,
		Organizer:    l.Organizer,
		Witnesses:    slices.Clone(l.Witnesses),
		Server:       l.Server,
		ServerAddr:   l.ServerAddr,
		Peers:        slices.Clone(l.Peers),
		RollCalls:    len(l.RollCalls),
		Elections:    len(l.Elections),
		Chirps:       len(l.Chirps),
	}, true
}

// RollCall returns a copy of a roll call of lao.
func (s *State) RollCall(lao, id crypto.Hash) (RollCall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return RollCall{}, false
	}
	rc, ok := l.RollCalls[id]
	if !ok {
		return RollCall{}, false
	}
	c := *rc
	c.Attendees = slices.Clone(rc.Attendees)
	return c, true
}

// Meeting returns a copy of a meeting of lao.
func (s *State) Meeting(lao, id crypto.Hash) (Meeting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return Meeting{}, false
	}
	m, ok := l.Meetings[id]
	if !ok {
		return Meeting{}, false
	}
	return *m, true
}

// Election returns a copy of an election of lao.
func (s *State) Election(lao, id crypto.Hash) (Election, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return Election{}, false
	}
	e, ok := l.Elections[id]
	if !ok {
		return Election{}, false
	}
	c := *e
	c.Ballots = maps.Clone(e.Ballots)
	c.Results = slices.Clone(e.Results)
	return c, true
}

// Chirps returns the chirps of lao ordered by timestamp, deleted ones
// included.
func (s *State) Chirps(lao crypto.Hash) []Chirp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return nil
	}
	out := make([]Chirp, 0, len(l.Chirps))
	for _, c := range l.Chirps {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Reactions returns the live reactions to chirp.
func (s *State) Reactions(lao, chirp crypto.Hash) []Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return nil
	}
	var out []Reaction
	for _, r := range l.Reactions {
		if r.ChirpID.Equal(chirp) && !r.Deleted {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Feed returns the server notifications of lao in arrival order.
func (s *State) Feed(lao crypto.Hash) []FeedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return nil
	}
	return slices.Clone(l.Feed)
}

// Balance returns the coins of pub in lao.
func (s *State) Balance(lao crypto.Hash, pub crypto.PublicKey) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return 0
	}
	return l.Ledger.Balance(pub)
}

// FederationStatus returns a copy of the federation handshake state of lao.
func (s *State) FederationStatus(lao crypto.Hash) (Federation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.laos[lao]
	if !ok {
		return Federation{}, false
	}
	f := l.Federation
	f.Expected = slices.Clone(f.Expected)
	f.Initiated = slices.Clone(f.Initiated)
	f.Results = slices.Clone(f.Results)
	return f, true
}
