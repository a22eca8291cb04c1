// Package updater folds one observation stream into Stores, running the
// eight-step model update described alongside the Markov decay rule it
// depends on (internal/domain).
package updater

import (
	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/stores"
)

// ModelDelta summarizes one updater pass for logging and tests.
type ModelDelta struct {
	NewExes     int
	NewMaps     int
	NewEdges    int
	PrunedEdges int
	BadExes     int
}

// ModelUpdater is the sole mutator of Stores during a tick's update step.
type ModelUpdater interface {
	Apply(s *stores.Stores, obs observation.Observation, policy observation.AdmissionPolicy, now uint64, activeWindow uint64, decay float32) ModelDelta
}

// Updater is the reference ModelUpdater. It tracks bad_exes (paths rejected
// once by the admission policy) across calls so a rejected exe is not
// re-evaluated on every subsequent scan.
type Updater struct {
	badExes map[string]struct{}
	// pruneEvery bounds how often active.prune/markov.prune_inactive runs;
	// 1 means every cycle, matching the simplest correct reading of spec
	// step 4 ("periodically"). Exposed so tests can force every-cycle
	// pruning deterministically.
	pruneEvery int
	sinceLast  int
}

// New returns an Updater that prunes on every call to Apply.
func New() *Updater {
	return &Updater{badExes: make(map[string]struct{}), pruneEvery: 1}
}

// NewWithPruneInterval returns an Updater that prunes every n calls.
func NewWithPruneInterval(n int) *Updater {
	if n < 1 {
		n = 1
	}
	return &Updater{badExes: make(map[string]struct{}), pruneEvery: n}
}

type pidMapTotals struct {
	bytesSeen uint64
	maps      []observation.MapSeen
}

func (u *Updater) Apply(s *stores.Stores, obs observation.Observation, policy observation.AdmissionPolicy, now uint64, activeWindow uint64, decay float32) ModelDelta {
	var delta ModelDelta

	// Step 1: clear running flags for every currently-running exe.
	wasRunning := make(map[domain.ExeID]bool)
	s.IterExes(func(id domain.ExeID, e *domain.Exe) {
		wasRunning[id] = e.Running
		e.Running = false
	})

	// Step 2: fold ExeSeen/MapSeen. procfs scanners emit ExeSeen followed
	// immediately by that exe's MapSeen events, so we group by the most
	// recently seen exe path.
	pending := make(map[string]*pidMapTotals)
	order := make([]string, 0)
	for _, ev := range obs {
		switch e := ev.(type) {
		case observation.ExeSeen:
			if _, ok := pending[e.Path]; !ok {
				pending[e.Path] = &pidMapTotals{}
				order = append(order, e.Path)
			}
		case observation.MapSeen:
			if pm, ok := pending[e.ExePath]; ok {
				pm.bytesSeen += e.Map.Length
				pm.maps = append(pm.maps, e)
			}
		}
	}

	runningNow := make([]domain.ExeID, 0, len(order))
	flipped := make([]domain.ExeID, 0)

	for _, path := range order {
		if _, bad := u.badExes[path]; bad {
			continue
		}
		key := domain.ExeKey(path)
		id, known := s.ExeIDByKey(key)

		if !known {
			pm := pending[path]
			if !policy.AdmitExe(path) || !admitByBytes(policy, pm) {
				u.badExes[path] = struct{}{}
				delta.BadExes++
				continue
			}
			id = s.EnsureExe(key)
			delta.NewExes++
		}

		exe, _ := s.Exe(id)
		prevRunning := wasRunning[id]
		exe.Running = true
		exe.LastSeenTime = ptr(now)
		if !prevRunning {
			flipped = append(flipped, id)
		}
		runningNow = append(runningNow, id)

		for _, ms := range pending[path].maps {
			if _, existed := s.MapIDByKey(ms.Map.Key()); !existed {
				delta.NewMaps++
			}
			mapID := s.EnsureMap(domain.MapSegment{
				Path:       ms.Map.Path,
				Offset:     ms.Map.Offset,
				Length:     ms.Map.Length,
				UpdateTime: now,
			})
			s.AttachMap(id, mapID)
		}
	}

	// Step 3: change_time for flipped exes.
	for _, id := range flipped {
		if exe, ok := s.Exe(id); ok {
			exe.ChangeTime = now
		}
	}

	// Step 4: active set update + periodic prune cascade.
	s.Active.Update(runningNow, now)
	u.sinceLast++
	if u.sinceLast >= u.pruneEvery {
		u.sinceLast = 0
		s.Active.Prune(now, activeWindow)
		delta.PrunedEdges += s.Markov.PruneInactive(s.Active.Exes())
	}

	// Step 5: lazy Markov-edge creation between every running exe and
	// every other exe in the active set.
	runningSet := make(map[domain.ExeID]struct{}, len(runningNow))
	for _, id := range runningNow {
		runningSet[id] = struct{}{}
	}
	for _, a := range runningNow {
		for b := range s.Active.Exes() {
			if a == b {
				continue
			}
			_, aRunning := runningSet[a]
			_, bRunning := runningSet[b]
			state := domain.StateFromRunning(aRunning, bRunning)
			if s.EnsureMarkovEdge(a, b, now, state) {
				delta.NewEdges++
			}
		}
	}

	// Step 6: recompute current state for every edge, apply decayed update
	// on transition.
	s.Markov.Iter(func(key stores.EdgeKey, edge *domain.MarkovEdge) {
		_, aRunning := runningSet[key.A]
		_, bRunning := runningSet[key.B]
		newState := domain.StateFromRunning(aRunning, bRunning)
		edge.UpdateState(newState, now, decay)
	})

	// Step 7: accounting pass.
	elapsed := satSub(now, s.LastAccountingTime)
	s.IterExes(func(_ domain.ExeID, e *domain.Exe) {
		if e.Running {
			e.TotalRunningTime += elapsed
		}
	})
	s.Markov.Iter(func(_ stores.EdgeKey, edge *domain.MarkovEdge) {
		if edge.State == domain.Both {
			edge.BothRunningTime += elapsed
		}
	})

	// Step 8.
	s.LastAccountingTime = now

	return delta
}

// admitByBytes decides admission on the sum of every MapSeen region's
// length for this exe, never on any single region — an exe made up
// entirely of sub-threshold library segments must still be admitted if
// their total clears the floor, and rejected if it doesn't even though
// some one segment might (not) individually pass.
func admitByBytes(policy observation.AdmissionPolicy, pm *pidMapTotals) bool {
	var total uint64
	if pm != nil {
		total = pm.bytesSeen
	}
	return policy.AdmitTotalBytes(total)
}

func ptr(v uint64) *uint64 { return &v }

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
