package snapshot

import (
	"fmt"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/stores"
)

// FromStores captures s into a Snapshot. Callers must ensure nothing
// mutates s concurrently with this call; it copies every field it needs
// rather than holding any reference into s.
func FromStores(s *stores.Stores, appVersion string, createdAtUnix int64) Snapshot {
	st := State{
		ModelTime:          s.ModelTime,
		LastAccountingTime: s.LastAccountingTime,
	}

	pathByExe := make(map[domain.ExeID]string)
	s.IterExes(func(id domain.ExeID, e *domain.Exe) {
		pathByExe[id] = string(e.Key)
		var lastSeen *uint64
		if e.LastSeenTime != nil {
			v := *e.LastSeenTime
			lastSeen = &v
		}
		st.Exes = append(st.Exes, ExeRecord{
			Path:             string(e.Key),
			TotalRunningTime: e.TotalRunningTime,
			LastSeenTime:     lastSeen,
		})
	})

	s.IterMaps(func(_ domain.MapID, m *domain.MapSegment) {
		st.Maps = append(st.Maps, MapRecord{
			Path:       m.Path,
			Offset:     m.Offset,
			Length:     m.Length,
			UpdateTime: m.UpdateTime,
		})
	})

	s.IterExes(func(id domain.ExeID, _ *domain.Exe) {
		for _, mapID := range s.ExeMaps.MapsForExe(id) {
			seg, ok := s.Map(mapID)
			if !ok {
				continue
			}
			st.ExeMaps = append(st.ExeMaps, ExeMapRecord{
				ExePath:   pathByExe[id],
				MapPath:   seg.Path,
				MapOffset: seg.Offset,
				MapLength: seg.Length,
			})
		}
	})

	s.Markov.Iter(func(key stores.EdgeKey, edge *domain.MarkovEdge) {
		st.MarkovEdges = append(st.MarkovEdges, MarkovRecord{
			ExeA:            pathByExe[key.A],
			ExeB:            pathByExe[key.B],
			TimeToLeave:     edge.TimeToLeave,
			TransitionProb:  edge.TransitionProb,
			BothRunningTime: edge.BothRunningTime,
		})
	})

	return Snapshot{
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			AppVersion:    appVersion,
			CreatedAtUnix: createdAtUnix,
		},
		State: st,
	}
}

// ToStores rebuilds a fresh Stores from snap: maps, then exes, then
// incidence (failing fast if either side of an incidence record is
// missing), then edges (using now as the initial last_change_time;
// statistics restored verbatim). Finally rebuilds the active set from
// last_seen_time and prunes edges outside the active window.
func ToStores(snap Snapshot, now uint64, activeWindow uint64) (*stores.Stores, error) {
	if snap.Meta.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrSnapshotSchema, snap.Meta.SchemaVersion, SchemaVersion)
	}

	s := stores.New()
	s.ModelTime = snap.State.ModelTime
	s.LastAccountingTime = snap.State.LastAccountingTime

	mapIDByPath := make(map[string][]domain.MapID)
	for _, m := range snap.State.Maps {
		id := s.EnsureMap(domain.MapSegment{
			Path:       m.Path,
			Offset:     m.Offset,
			Length:     m.Length,
			UpdateTime: m.UpdateTime,
		})
		mapIDByPath[m.Path] = append(mapIDByPath[m.Path], id)
	}

	exeIDByPath := make(map[string]domain.ExeID)
	for _, e := range snap.State.Exes {
		id := s.EnsureExe(domain.ExeKey(e.Path))
		exe, _ := s.Exe(id)
		exe.TotalRunningTime = e.TotalRunningTime
		exe.LastSeenTime = e.LastSeenTime
		exeIDByPath[e.Path] = id
	}

	for _, em := range snap.State.ExeMaps {
		exeID, ok := exeIDByPath[em.ExePath]
		if !ok {
			return nil, fmt.Errorf("%w: exe_map references unknown exe %q", domain.ErrExeMissing, em.ExePath)
		}
		mapID, ok := s.MapIDByKey(domain.MapKey{Path: em.MapPath, Offset: em.MapOffset, Length: em.MapLength})
		if !ok {
			return nil, fmt.Errorf("%w: exe_map references unknown map %q", domain.ErrMapMissing, em.MapPath)
		}
		s.AttachMap(exeID, mapID)
	}

	for _, mr := range snap.State.MarkovEdges {
		aID, ok := exeIDByPath[mr.ExeA]
		if !ok {
			return nil, fmt.Errorf("%w: markov edge references unknown exe %q", domain.ErrExeMissing, mr.ExeA)
		}
		bID, ok := exeIDByPath[mr.ExeB]
		if !ok {
			return nil, fmt.Errorf("%w: markov edge references unknown exe %q", domain.ErrExeMissing, mr.ExeB)
		}
		state := domain.Neither
		s.EnsureMarkovEdge(aID, bID, now, state)
		edge, _ := s.Markov.Get(stores.NewEdgeKey(aID, bID))
		edge.TimeToLeave = mr.TimeToLeave
		edge.TransitionProb = mr.TransitionProb
		edge.BothRunningTime = mr.BothRunningTime
	}

	activeNow := make([]domain.ExeID, 0)
	s.IterExes(func(id domain.ExeID, e *domain.Exe) {
		if e.LastSeenTime != nil {
			activeNow = append(activeNow, id)
		}
	})
	for _, id := range activeNow {
		exe, _ := s.Exe(id)
		s.Active.Update([]domain.ExeID{id}, *exe.LastSeenTime)
	}
	s.Active.Prune(now, activeWindow)
	s.Markov.PruneInactive(s.Active.Exes())

	return s, nil
}
