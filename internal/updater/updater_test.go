package updater

import (
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/stretchr/testify/assert"
)

func TestApplyNewExeBelowMinsizeGoesToBadExes(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(2_000_000, nil)

	obs := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.ExeSeen{Path: "/bin/tiny", PID: 1},
		observation.MapSeen{ExePath: "/bin/tiny", Map: domain.MapSegment{Path: "/bin/tiny", Length: 1024}},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}

	delta := u.Apply(s, obs, policy, 0, 21600, 0.01)
	assert.Equal(t, 0, delta.NewExes)
	assert.Equal(t, 1, delta.BadExes)
	assert.Equal(t, 0, s.NumExes())

	// Second tick, same input: nothing new happens.
	delta2 := u.Apply(s, obs, policy, 20, 21600, 0.01)
	assert.Equal(t, 0, delta2.NewExes)
	assert.Equal(t, 0, delta2.BadExes)
	assert.Equal(t, 0, s.NumExes())
}

func TestApplyAdmitsExeWhenAggregateMapBytesClearMinsize(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(2_000_000, nil)

	// Three maps, each individually below the 2MB floor, summing to 3MB.
	obs := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.ExeSeen{Path: "/bin/multi", PID: 1},
		observation.MapSeen{ExePath: "/bin/multi", Map: domain.MapSegment{Path: "/lib/a.so", Length: 1_000_000}},
		observation.MapSeen{ExePath: "/bin/multi", Map: domain.MapSegment{Path: "/lib/b.so", Length: 1_000_000}},
		observation.MapSeen{ExePath: "/bin/multi", Map: domain.MapSegment{Path: "/lib/c.so", Length: 1_000_000}},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}

	delta := u.Apply(s, obs, policy, 0, 21600, 0.01)
	assert.Equal(t, 1, delta.NewExes)
	assert.Equal(t, 0, delta.BadExes)
	assert.Equal(t, 1, s.NumExes())
}

func TestApplyRejectsExeWhenAggregateMapBytesBelowMinsize(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(2_000_000, nil)

	// Several sub-minsize maps whose sum also stays below the floor.
	obs := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.ExeSeen{Path: "/bin/small", PID: 1},
		observation.MapSeen{ExePath: "/bin/small", Map: domain.MapSegment{Path: "/lib/a.so", Length: 500_000}},
		observation.MapSeen{ExePath: "/bin/small", Map: domain.MapSegment{Path: "/lib/b.so", Length: 500_000}},
		observation.MapSeen{ExePath: "/bin/small", Map: domain.MapSegment{Path: "/lib/c.so", Length: 500_000}},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}

	delta := u.Apply(s, obs, policy, 0, 21600, 0.01)
	assert.Equal(t, 0, delta.NewExes)
	assert.Equal(t, 1, delta.BadExes)
	assert.Equal(t, 0, s.NumExes())
}

func TestApplyEmptyObservationIsNoop(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(2_000_000, nil)

	obs := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.MemStat{Mem: domain.MemStat{}},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}

	delta := u.Apply(s, obs, policy, 0, 21600, 0.01)
	assert.Equal(t, 0, delta.NewExes)
	assert.Equal(t, 0, delta.NewMaps)
	assert.Equal(t, 0, delta.NewEdges)
	assert.Equal(t, 0, s.NumExes())
}

func TestApplyCreatesEdgeBetweenTwoRunningExes(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(0, nil)

	obs := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.ExeSeen{Path: "/bin/a", PID: 1},
		observation.ExeSeen{Path: "/bin/b", PID: 2},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}

	delta := u.Apply(s, obs, policy, 0, 21600, 0.01)
	assert.Equal(t, 2, delta.NewExes)
	assert.Equal(t, 1, delta.NewEdges)
	assert.Equal(t, 1, s.Markov.Len())

	idA, _ := s.ExeIDByKey("/bin/a")
	idB, _ := s.ExeIDByKey("/bin/b")
	edge, ok := s.Markov.Get(stores.NewEdgeKey(idA, idB))
	assert.True(t, ok)
	assert.Equal(t, domain.Both, edge.State)
}

func TestApplyEveryEdgeHasBothEndpointsActiveAfterPrune(t *testing.T) {
	s := stores.New()
	u := New()
	policy := observation.NewMinSizePolicy(0, nil)

	obs1 := observation.Observation{
		observation.ObsBegin{Time: 0, ScanID: 1},
		observation.ExeSeen{Path: "/bin/a", PID: 1},
		observation.ExeSeen{Path: "/bin/b", PID: 2},
		observation.ObsEnd{Time: 0, ScanID: 1},
	}
	u.Apply(s, obs1, policy, 0, 100, 0.01)

	// b stops appearing; far enough in the future that the active window
	// expires it.
	obs2 := observation.Observation{
		observation.ObsBegin{Time: 1000, ScanID: 2},
		observation.ExeSeen{Path: "/bin/a", PID: 1},
		observation.ObsEnd{Time: 1000, ScanID: 2},
	}
	u.Apply(s, obs2, policy, 1000, 100, 0.01)

	s.Markov.Iter(func(key stores.EdgeKey, _ *domain.MarkovEdge) {
		active := s.Active.Exes()
		_, aok := active[key.A]
		_, bok := active[key.B]
		assert.True(t, aok)
		assert.True(t, bok)
	})
}
