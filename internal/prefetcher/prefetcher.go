// Package prefetcher issues advisory readahead hints for a PrefetchPlan.
// No bytes are ever read into user space; the kernel is merely told which
// pages are about to matter.
package prefetcher

import (
	"context"
	"fmt"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/planner"
	"github.com/evalgo/preloadd/internal/stores"
	"golang.org/x/sync/semaphore"
)

// PrefetchReport summarizes one execute call for logging and tests.
type PrefetchReport struct {
	NumMaps    int
	TotalBytes uint64
	Failures   map[domain.MapKey]error
}

// Prefetcher issues the hints for a plan. Implementations are stateless and
// may be swapped out at reload without coordination.
type Prefetcher interface {
	Execute(ctx context.Context, plan planner.PrefetchPlan, s *stores.Stores) PrefetchReport
}

// Hinter performs the OS-level advisory call for one path/offset/length.
// Separated from Prefetcher so tests can substitute a fake without opening
// real files.
type Hinter interface {
	Hint(path string, offset int64, length int) error
}

// BoundedPrefetcher issues hints through a fixed-size counting semaphore,
// one goroutine per map, capped at N concurrent in-flight hints.
type BoundedPrefetcher struct {
	hinter      Hinter
	concurrency int64
}

// NewBoundedPrefetcher returns a Prefetcher bounded at max(1, concurrency).
func NewBoundedPrefetcher(hinter Hinter, concurrency int) *BoundedPrefetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BoundedPrefetcher{hinter: hinter, concurrency: int64(concurrency)}
}

func (p *BoundedPrefetcher) Execute(ctx context.Context, plan planner.PrefetchPlan, s *stores.Stores) PrefetchReport {
	report := PrefetchReport{Failures: make(map[domain.MapKey]error)}
	sem := semaphore.NewWeighted(p.concurrency)

	type result struct {
		key domain.MapKey
		err error
	}
	results := make(chan result, len(plan.Maps))

	for _, mapID := range plan.Maps {
		seg, ok := s.Map(mapID)
		if !ok {
			continue
		}
		key := seg.Key()
		length := seg.Length
		if err := sem.Acquire(ctx, 1); err != nil {
			results <- result{key: key, err: err}
			continue
		}
		report.NumMaps++
		report.TotalBytes += length
		go func(seg domain.MapSegment) {
			defer sem.Release(1)
			err := p.hinter.Hint(seg.Path, int64(seg.Offset), int(seg.Length))
			results <- result{key: seg.Key(), err: err}
		}(*seg)
	}

	for i := 0; i < report.NumMaps; i++ {
		r := <-results
		if r.err != nil {
			report.Failures[r.key] = r.err
		}
	}
	return report
}

// NoopPrefetcher issues no hints; used when system.prefetch_concurrency is 0.
type NoopPrefetcher struct{}

func (NoopPrefetcher) Execute(_ context.Context, _ planner.PrefetchPlan, _ *stores.Stores) PrefetchReport {
	return PrefetchReport{Failures: make(map[domain.MapKey]error)}
}

// ErrHintFailed wraps an OS-level hint failure with the path for context.
func ErrHintFailed(path string, err error) error {
	return fmt.Errorf("prefetcher: hint %s: %w", path, err)
}
