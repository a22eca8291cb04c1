package planner

import (
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/predictor"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/stretchr/testify/assert"
)

func TestMemoryPolicyClampBounds(t *testing.T) {
	p := MemoryPolicy{MemTotalPct: 500, MemFreePct: -500, MemCachedPct: 0}.Clamp()
	assert.Equal(t, 100, p.MemTotalPct)
	assert.Equal(t, -100, p.MemFreePct)
}

func TestPlanBudgetedSelectionScenario3(t *testing.T) {
	s := stores.New()
	id1 := s.EnsureMap(domain.MapSegment{Path: "/a", Length: 2048})
	id2 := s.EnsureMap(domain.MapSegment{Path: "/b", Length: 2048})
	id3 := s.EnsureMap(domain.MapSegment{Path: "/c", Length: 1024})

	pred := predictor.Prediction{MapScores: map[domain.MapID]float64{
		id1: 0.9, id2: 0.8, id3: 0.7,
	}}
	mem := domain.MemStat{TotalKB: 0, FreeKB: 3, CachedKB: 0}
	policy := MemoryPolicy{MemTotalPct: 0, MemFreePct: 100, MemCachedPct: 0}

	pl := NewGreedyPlanner(nil)
	plan := pl.Plan(pred, s, mem, policy, SortNone)

	assert.Equal(t, []domain.MapID{id1, id3}, plan.Maps)
	assert.Equal(t, uint64(3072), plan.TotalBytes)
	assert.Equal(t, uint64(3072), plan.BudgetBytes)
}

func TestPlanSkipsOversizedMapWithoutAborting(t *testing.T) {
	s := stores.New()
	big := s.EnsureMap(domain.MapSegment{Path: "/big", Length: 10 * 1024})
	small := s.EnsureMap(domain.MapSegment{Path: "/small", Length: 512})

	pred := predictor.Prediction{MapScores: map[domain.MapID]float64{big: 0.99, small: 0.1}}
	mem := domain.MemStat{FreeKB: 1}
	policy := MemoryPolicy{MemFreePct: 100}

	pl := NewGreedyPlanner(nil)
	plan := pl.Plan(pred, s, mem, policy, SortNone)
	assert.Equal(t, []domain.MapID{small}, plan.Maps)
}

func TestPlanRespectsBudgetInvariant(t *testing.T) {
	s := stores.New()
	ids := make([]domain.MapID, 0)
	scores := make(map[domain.MapID]float64)
	for i := 0; i < 20; i++ {
		id := s.EnsureMap(domain.MapSegment{Path: "/x", Length: uint64(100 * (i + 1))})
		ids = append(ids, id)
		scores[id] = 1.0 / float64(i+1)
	}
	pred := predictor.Prediction{MapScores: scores}
	mem := domain.MemStat{FreeKB: 5}
	policy := MemoryPolicy{MemFreePct: 100}

	pl := NewGreedyPlanner(nil)
	plan := pl.Plan(pred, s, mem, policy, SortNone)

	var sumKB uint64
	for _, id := range plan.Maps {
		seg, _ := s.Map(id)
		sumKB += ceilKB(seg.Length)
	}
	assert.LessOrEqual(t, sumKB, uint64(5))
}
