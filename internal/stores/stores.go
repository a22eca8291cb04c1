package stores

import "github.com/evalgo/preloadd/internal/domain"

// Stores owns every entity and relation in the model: exes, maps, their
// incidence, the Markov edge graph, and the active set. It is the single
// place ExeID/MapID are assigned, and the only component besides the
// updater and the engine's load path that may mutate this state.
//
// Invariants held across cycles:
//   - ExeKey <-> ExeID and MapKey <-> MapID are each bijections.
//   - exe<->map incidence is symmetric.
//   - Markov edge keys are canonicalized (min, max); at most one edge per
//     unordered pair; both endpoints exist.
//   - For every Markov edge, both endpoints are in the active set after
//     pruning.
type Stores struct {
	ModelTime           uint64
	LastAccountingTime  uint64

	exes        map[domain.ExeID]*domain.Exe
	exeIDByKey  map[domain.ExeKey]domain.ExeID
	nextExeID   domain.ExeID

	maps       map[domain.MapID]*domain.MapSegment
	mapIDByKey map[domain.MapKey]domain.MapID
	nextMapID  domain.MapID

	ExeMaps *ExeMapIndex
	Markov  *MarkovGraph
	Active  *ActiveSet
}

// New returns an empty Stores with model_time 0.
func New() *Stores {
	return &Stores{
		exes:       make(map[domain.ExeID]*domain.Exe),
		exeIDByKey: make(map[domain.ExeKey]domain.ExeID),
		maps:       make(map[domain.MapID]*domain.MapSegment),
		mapIDByKey: make(map[domain.MapKey]domain.MapID),
		ExeMaps:    NewExeMapIndex(),
		Markov:     NewMarkovGraph(),
		Active:     NewActiveSet(),
	}
}

// EnsureExe inserts key if absent and returns its id. Idempotent; never
// rekeys an existing entry.
func (s *Stores) EnsureExe(key domain.ExeKey) domain.ExeID {
	if id, ok := s.exeIDByKey[key]; ok {
		return id
	}
	s.nextExeID++
	id := s.nextExeID
	s.exes[id] = domain.NewExe(key)
	s.exeIDByKey[key] = id
	return id
}

// ExeIDByKey looks up an existing exe id by key.
func (s *Stores) ExeIDByKey(key domain.ExeKey) (domain.ExeID, bool) {
	id, ok := s.exeIDByKey[key]
	return id, ok
}

// Exe returns the record for id, if any.
func (s *Stores) Exe(id domain.ExeID) (*domain.Exe, bool) {
	e, ok := s.exes[id]
	return e, ok
}

// IterExes calls fn for every exe. fn must not mutate Stores.
func (s *Stores) IterExes(fn func(id domain.ExeID, exe *domain.Exe)) {
	for id, e := range s.exes {
		fn(id, e)
	}
}

// NumExes reports the number of tracked exes.
func (s *Stores) NumExes() int { return len(s.exes) }

// EnsureMap inserts segment's key if absent, else updates UpdateTime on the
// existing record. Idempotent by MapKey.
func (s *Stores) EnsureMap(segment domain.MapSegment) domain.MapID {
	key := segment.Key()
	if id, ok := s.mapIDByKey[key]; ok {
		s.maps[id].UpdateTime = segment.UpdateTime
		return id
	}
	s.nextMapID++
	id := s.nextMapID
	seg := segment
	s.maps[id] = &seg
	s.mapIDByKey[key] = id
	return id
}

// MapIDByKey looks up an existing map id by key.
func (s *Stores) MapIDByKey(key domain.MapKey) (domain.MapID, bool) {
	id, ok := s.mapIDByKey[key]
	return id, ok
}

// Map returns the record for id, if any.
func (s *Stores) Map(id domain.MapID) (*domain.MapSegment, bool) {
	m, ok := s.maps[id]
	return m, ok
}

// IterMaps calls fn for every map. fn must not mutate Stores.
func (s *Stores) IterMaps(fn func(id domain.MapID, seg *domain.MapSegment)) {
	for id, m := range s.maps {
		fn(id, m)
	}
}

// NumMaps reports the number of tracked maps.
func (s *Stores) NumMaps() int { return len(s.maps) }

// AttachMap idempotently associates exeID with mapID in both directions.
func (s *Stores) AttachMap(exeID domain.ExeID, mapID domain.MapID) {
	s.ExeMaps.Attach(exeID, mapID)
}

// EnsureMarkovEdge creates a new edge for the unordered pair (a, b) in state
// at model-time now if none exists yet. a == b is rejected. Returns whether
// a new edge was created.
func (s *Stores) EnsureMarkovEdge(a, b domain.ExeID, now uint64, state domain.MarkovState) bool {
	if a == b {
		return false
	}
	return s.Markov.EnsureEdge(a, b, now, state)
}
