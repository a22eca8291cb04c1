package stores

import (
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEnsureMapIsIdempotent(t *testing.T) {
	s := New()
	seg := domain.MapSegment{Path: "/bin/bash", Offset: 0, Length: 4096, UpdateTime: 1}
	id1 := s.EnsureMap(seg)
	seg.UpdateTime = 2
	id2 := s.EnsureMap(seg)
	assert.Equal(t, id1, id2)
	m, ok := s.Map(id1)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), m.UpdateTime)
}

func TestEdgeKeyCanonicalizesOrder(t *testing.T) {
	a, b := domain.ExeID(1), domain.ExeID(2)
	assert.Equal(t, NewEdgeKey(a, b), NewEdgeKey(b, a))
}

func TestEnsureMarkovEdgeRejectsSelfPair(t *testing.T) {
	s := New()
	a := s.EnsureExe("/bin/a")
	assert.False(t, s.EnsureMarkovEdge(a, a, 0, domain.Both))
	assert.Equal(t, 0, s.Markov.Len())
}

func TestPruneInactiveDropsEdgesWithInactiveEndpoint(t *testing.T) {
	s := New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	s.Active.Update([]domain.ExeID{a}, 0)
	// b never marked active.
	pruned := s.Markov.PruneInactive(s.Active.Exes())
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 0, s.Markov.Len())
}

func TestExeMapIndexSymmetric(t *testing.T) {
	s := New()
	exeID := s.EnsureExe("/bin/a")
	mapID := s.EnsureMap(domain.MapSegment{Path: "/lib/libc.so", Length: 8192})
	s.AttachMap(exeID, mapID)

	assert.Contains(t, s.ExeMaps.MapsForExe(exeID), mapID)
	assert.Contains(t, s.ExeMaps.ExesForMap(mapID), exeID)
}
