// Package engine owns Stores and drives the tick loop: scan, update,
// predict, plan, prefetch, advance model time. Exactly one goroutine calls
// into Stores; there are no locks around it (see internal/stores).
package engine

import (
	"context"

	"github.com/evalgo/preloadd/internal/config"
	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/planner"
	"github.com/evalgo/preloadd/internal/predictor"
	"github.com/evalgo/preloadd/internal/prefetcher"
	"github.com/evalgo/preloadd/internal/repository"
	"github.com/evalgo/preloadd/internal/updater"
)

// Clock abstracts wall-clock sleeping so tests can run ticks without
// waiting in real time.
type Clock interface {
	Now() uint64
	Sleep(ctx context.Context, d uint64)
}

// Services bundles every collaborator the engine depends on. A reload
// swaps the admission policy, updater, predictor, planner and prefetcher;
// the scanner, the clock and the repository are kept (persistence.state_path
// never changes under a running engine).
type Services struct {
	Scanner   observation.Scanner
	Admission observation.AdmissionPolicy
	Updater   updater.ModelUpdater
	Predictor predictor.Predictor
	Planner   planner.PrefetchPlanner
	Prefetch  prefetcher.Prefetcher
	Repo      repository.StateRepository
	Clock     Clock
}

// ReloadBundle is what a control-channel Reload event carries: a new
// config plus freshly built collaborators for everything except the
// scanner, the clock and the repository; its persistence.state_path is not
// adopted.
type ReloadBundle struct {
	Config    config.Config
	Admission observation.AdmissionPolicy
	Updater   updater.ModelUpdater
	Predictor predictor.Predictor
	Planner   planner.PrefetchPlanner
	Prefetch  prefetcher.Prefetcher
}

// ControlEvent is the single-producer stream the engine's control channel
// carries.
type ControlEvent struct {
	Reload *ReloadBundle
}
