package stores

import "github.com/evalgo/preloadd/internal/domain"

// ActiveSet tracks the last model-time at which each exe was observed
// running. An exe is active iff model_time - last_seen <= active_window.
// Markov edges are only maintained over pairs of active exes.
type ActiveSet struct {
	lastSeen map[domain.ExeID]uint64
}

// NewActiveSet returns an empty active set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{lastSeen: make(map[domain.ExeID]uint64)}
}

// Update marks every exe in activeNow as seen at time now.
func (s *ActiveSet) Update(activeNow []domain.ExeID, now uint64) {
	for _, id := range activeNow {
		s.lastSeen[id] = now
	}
}

// Prune drops every exe not seen within window of now and returns the set
// of ids removed.
func (s *ActiveSet) Prune(now, window uint64) map[domain.ExeID]struct{} {
	removed := make(map[domain.ExeID]struct{})
	for id, last := range s.lastSeen {
		if now-last > window {
			removed[id] = struct{}{}
			delete(s.lastSeen, id)
		}
	}
	return removed
}

// Contains reports whether id is currently active.
func (s *ActiveSet) Contains(id domain.ExeID) bool {
	_, ok := s.lastSeen[id]
	return ok
}

// Exes returns the current active set as a lookup set.
func (s *ActiveSet) Exes() map[domain.ExeID]struct{} {
	out := make(map[domain.ExeID]struct{}, len(s.lastSeen))
	for id := range s.lastSeen {
		out[id] = struct{}{}
	}
	return out
}

// Len reports the number of active exes.
func (s *ActiveSet) Len() int { return len(s.lastSeen) }
