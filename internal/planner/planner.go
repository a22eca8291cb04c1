// Package planner turns a Prediction into a memory-budgeted PrefetchPlan:
// which maps to fetch, and in what order to issue them.
package planner

import (
	"sort"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/predictor"
	"github.com/evalgo/preloadd/internal/stores"
)

// SortStrategy selects the issue order for the selected set, without
// changing which maps were selected.
type SortStrategy int

const (
	SortNone SortStrategy = iota
	SortPath
	SortBlock
	SortInode
)

func (s SortStrategy) String() string {
	switch s {
	case SortNone:
		return "none"
	case SortPath:
		return "path"
	case SortBlock:
		return "block"
	case SortInode:
		return "inode"
	default:
		return "unknown"
	}
}

// MemoryPolicy holds the three budget percentages, each clamped to
// [-100, 100]. Negative percentages debit the budget.
type MemoryPolicy struct {
	MemTotalPct  int
	MemFreePct   int
	MemCachedPct int
}

// Clamp returns a copy with every field clamped to [-100, 100].
func (m MemoryPolicy) Clamp() MemoryPolicy {
	return MemoryPolicy{
		MemTotalPct:  clampPct(m.MemTotalPct),
		MemFreePct:   clampPct(m.MemFreePct),
		MemCachedPct: clampPct(m.MemCachedPct),
	}
}

func clampPct(v int) int {
	if v < -100 {
		return -100
	}
	if v > 100 {
		return 100
	}
	return v
}

// PrefetchPlan is the planner's output: the ordered set of maps to fetch.
type PrefetchPlan struct {
	Maps        []domain.MapID
	TotalBytes  uint64
	BudgetBytes uint64
}

// FileMeta is the subset of filesystem metadata the ordering strategies
// need, cached per MapID for the planner instance's lifetime.
type FileMeta struct {
	DeviceID    uint64
	Inode       uint64
	BlockSize   uint64
	StatFailed  bool
}

// MetaProvider resolves filesystem metadata for a map's backing path.
type MetaProvider interface {
	Stat(path string) (FileMeta, error)
}

// PrefetchPlanner produces a PrefetchPlan from a Prediction.
type PrefetchPlanner interface {
	Plan(pred predictor.Prediction, s *stores.Stores, mem domain.MemStat, policy MemoryPolicy, strategy SortStrategy) PrefetchPlan
}

// GreedyPlanner is the reference PrefetchPlanner: sorts candidates by
// descending score, greedily takes maps that fit the remaining budget
// (skipping, never aborting, on a map that doesn't fit), then reorders the
// selected set for issue per the chosen SortStrategy.
type GreedyPlanner struct {
	meta  MetaProvider
	cache map[domain.MapID]FileMeta
}

// NewGreedyPlanner returns a planner backed by meta for Block/Inode sorting.
// meta may be nil if only None/Path sorting will ever be used.
func NewGreedyPlanner(meta MetaProvider) *GreedyPlanner {
	return &GreedyPlanner{meta: meta, cache: make(map[domain.MapID]FileMeta)}
}

type candidate struct {
	id    domain.MapID
	score float64
	index int
	seg   domain.MapSegment
}

func (p *GreedyPlanner) Plan(pred predictor.Prediction, s *stores.Stores, mem domain.MemStat, policy MemoryPolicy, strategy SortStrategy) PrefetchPlan {
	policy = policy.Clamp()
	budgetKB := budgetKB(mem, policy)

	candidates := make([]candidate, 0, len(pred.MapScores))
	idx := 0
	for id, score := range pred.MapScores {
		seg, ok := s.Map(id)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: score, index: idx, seg: *seg})
		idx++
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var selected []candidate
	var totalBytes uint64
	remaining := budgetKB
	for _, c := range candidates {
		needKB := ceilKB(c.seg.Length)
		if needKB > remaining {
			continue
		}
		selected = append(selected, c)
		remaining -= needKB
		totalBytes += c.seg.Length
	}

	p.order(selected, strategy)

	ids := make([]domain.MapID, len(selected))
	for i, c := range selected {
		ids[i] = c.id
	}

	return PrefetchPlan{
		Maps:        ids,
		TotalBytes:  totalBytes,
		BudgetBytes: budgetKB * 1024,
	}
}

func budgetKB(mem domain.MemStat, policy MemoryPolicy) uint64 {
	fromTotalFree := pctOf(policy.MemTotalPct, mem.TotalKB) + pctOf(policy.MemFreePct, mem.FreeKB)
	available := fromTotalFree
	if available < 0 {
		available = 0
	}
	available += pctOf(policy.MemCachedPct, mem.CachedKB)
	if available < 0 {
		available = 0
	}
	return uint64(available)
}

func pctOf(pct int, kb uint64) int64 {
	return int64(pct) * int64(kb) / 100
}

func ceilKB(bytes uint64) uint64 {
	return (bytes + 1023) / 1024
}

func (p *GreedyPlanner) order(cands []candidate, strategy SortStrategy) {
	switch strategy {
	case SortNone:
		// Already in selection order (descending score).
	case SortPath:
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].seg.Path != cands[j].seg.Path {
				return cands[i].seg.Path < cands[j].seg.Path
			}
			return cands[i].index < cands[j].index
		})
	case SortBlock:
		metas := p.resolveAll(cands)
		sort.SliceStable(cands, func(i, j int) bool {
			mi, mj := metas[cands[i].id], metas[cands[j].id]
			bi := blockOffset(mi, cands[i].seg.Offset)
			bj := blockOffset(mj, cands[j].seg.Offset)
			if mi.DeviceID != mj.DeviceID {
				return mi.DeviceID < mj.DeviceID
			}
			if bi != bj {
				return bi < bj
			}
			return cands[i].seg.Offset < cands[j].seg.Offset
		})
	case SortInode:
		metas := p.resolveAll(cands)
		sort.SliceStable(cands, func(i, j int) bool {
			mi, mj := metas[cands[i].id], metas[cands[j].id]
			if mi.DeviceID != mj.DeviceID {
				return mi.DeviceID < mj.DeviceID
			}
			if mi.Inode != mj.Inode {
				return mi.Inode < mj.Inode
			}
			return cands[i].seg.Offset < cands[j].seg.Offset
		})
	}
	// Score is always a tiebreaker precedence: higher score first.
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}

func blockOffset(m FileMeta, byteOffset uint64) uint64 {
	bs := m.BlockSize
	if bs == 0 {
		bs = 4096
	}
	return byteOffset / bs
}

func (p *GreedyPlanner) resolveAll(cands []candidate) map[domain.MapID]FileMeta {
	out := make(map[domain.MapID]FileMeta, len(cands))
	for _, c := range cands {
		out[c.id] = p.resolve(c.id, c.seg.Path)
	}
	return out
}

func (p *GreedyPlanner) resolve(id domain.MapID, path string) FileMeta {
	if meta, ok := p.cache[id]; ok {
		return meta
	}
	if p.meta == nil {
		meta := FileMeta{StatFailed: true}
		p.cache[id] = meta
		return meta
	}
	meta, err := p.meta.Stat(path)
	if err != nil {
		meta = FileMeta{StatFailed: true}
	}
	p.cache[id] = meta
	return meta
}
