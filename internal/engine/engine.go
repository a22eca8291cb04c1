package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evalgo/preloadd/internal/config"
	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/metrics"
	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/planner"
	"github.com/evalgo/preloadd/internal/predictor"
	"github.com/evalgo/preloadd/internal/prefetcher"
	"github.com/evalgo/preloadd/internal/snapshot"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/evalgo/preloadd/internal/updater"
	"github.com/sirupsen/logrus"
)

// TickReport summarizes one tick for logging and tests.
type TickReport struct {
	ScanID           uint64
	Delta            updater.ModelDelta
	PredictionCount  int
	PrefetchReport   prefetcher.PrefetchReport
	MemStat          domain.MemStat
	HadMemStat       bool
}

// Engine drives the scan → update → predict → plan → prefetch cycle. Only
// Engine.tick (and the reload path, which runs strictly between ticks)
// mutates stores.
type Engine struct {
	mu       sync.Mutex // guards config/services swap during reload only
	cfg      config.Config
	services Services
	stores   *stores.Stores
	metrics  *metrics.Metrics

	scanID uint64
}

// New returns an Engine with an empty model and the given config/services.
func New(cfg config.Config, services Services) *Engine {
	return &Engine{cfg: cfg, services: services, stores: stores.New()}
}

// SetMetrics attaches a Prometheus metrics sink; ticks record against it
// when non-nil. Metrics are ambient observability, not a tick collaborator,
// so they are not part of Services/ReloadBundle and survive a reload.
func (e *Engine) SetMetrics(m *metrics.Metrics) { e.metrics = m }

// NewFromSnapshot reconstitutes Stores from snap before returning the
// Engine. now is used as the initial last_change_time for restored edges.
func NewFromSnapshot(cfg config.Config, services Services, snap snapshot.Snapshot, now uint64) (*Engine, error) {
	s, err := snapshot.ToStores(snap, now, uint64(cfg.Model.ActiveWindow.Seconds()))
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, services: services, stores: s}, nil
}

// Stores exposes the current model for read-only inspection (e.g. the
// dump CLI subcommand). Callers must not mutate the returned value.
func (e *Engine) Stores() *stores.Stores { return e.stores }

func (e *Engine) tick(ctx context.Context, log *logrus.Entry) TickReport {
	e.scanID++
	cfg := e.cfg

	tickStart := time.Now()

	var obs observation.Observation
	var scanErr error
	if cfg.System.DoScan {
		obs, scanErr = e.services.Scanner.Scan(e.stores.ModelTime, e.scanID)
		if scanErr != nil {
			log.WithError(scanErr).Error("scan failed")
			if e.metrics != nil {
				e.metrics.ScanFailures.Inc()
			}
			return TickReport{ScanID: e.scanID}
		}
	} else {
		obs = observation.Observation{
			observation.ObsBegin{Time: e.stores.ModelTime, ScanID: e.scanID},
			observation.ObsEnd{Time: e.stores.ModelTime, ScanID: e.scanID},
		}
	}

	memStat, hasMem := obs.FindMemStat()

	var delta updater.ModelDelta
	if cfg.System.DoScan {
		delta = e.services.Updater.Apply(e.stores, obs, e.services.Admission, e.stores.ModelTime,
			uint64(cfg.Model.ActiveWindow.Seconds()), cfg.Model.Decay)
	}

	var pred predictor.Prediction
	if cfg.System.DoPredict {
		pred = e.services.Predictor.Predict(e.stores, uint64(cfg.Model.Cycle.Seconds()), cfg.Model.UseCorrelation)
	}

	var plan planner.PrefetchPlan
	if cfg.System.DoPredict && hasMem {
		plan = e.services.Planner.Plan(pred, e.stores, memStat, cfg.Model.Memory, cfg.System.SortStrategy)
	}

	report := e.services.Prefetch.Execute(ctx, plan, e.stores)

	e.stores.ModelTime = satAdd(e.stores.ModelTime, uint64(cfg.Model.Cycle.Seconds()))

	if e.metrics != nil {
		e.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
		e.metrics.TicksTotal.Inc()
		e.metrics.NewExes.Add(float64(delta.NewExes))
		e.metrics.NewMaps.Add(float64(delta.NewMaps))
		e.metrics.NewEdges.Add(float64(delta.NewEdges))
		e.metrics.PrunedEdges.Add(float64(delta.PrunedEdges))
		e.metrics.BadExes.Add(float64(delta.BadExes))
		e.metrics.PrefetchMaps.Add(float64(report.NumMaps))
		e.metrics.PrefetchBytes.Add(float64(report.TotalBytes))
		e.metrics.PrefetchFailure.Add(float64(len(report.Failures)))
		e.metrics.ModelTime.Set(float64(e.stores.ModelTime))
	}

	return TickReport{
		ScanID:          e.scanID,
		Delta:           delta,
		PredictionCount: len(pred.ExeScores),
		PrefetchReport:  report,
		MemStat:         memStat,
		HadMemStat:      hasMem,
	}
}

// Save captures the current Stores and persists them via the active
// repository. The caller's snapshot.FromStores call copies everything it
// needs out of Stores before any I/O begins, so Save never holds a
// mutating lock on Stores during the (possibly slow) repository call.
func (e *Engine) Save(ctx context.Context, appVersion string, createdAtUnix int64) error {
	snap := snapshot.FromStores(e.stores, appVersion, createdAtUnix)
	if err := e.services.Repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("engine: save: %w", err)
	}
	return nil
}

// applyReload swaps every collaborator in bundle except the repository,
// and adopts bundle.Config except for persistence.state_path, which is
// refused with a warning: the state file under a running engine never
// changes out from under it.
func (e *Engine) applyReload(bundle ReloadBundle, log *logrus.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	newCfg := bundle.Config
	if newCfg.Persistence.StatePath != e.cfg.Persistence.StatePath {
		log.Warnf("reload: refusing persistence.state_path change from %q to %q", e.cfg.Persistence.StatePath, newCfg.Persistence.StatePath)
		newCfg.Persistence.StatePath = e.cfg.Persistence.StatePath
	}
	e.cfg = newCfg

	e.services.Admission = bundle.Admission
	e.services.Updater = bundle.Updater
	e.services.Predictor = bundle.Predictor
	e.services.Planner = bundle.Planner
	e.services.Prefetch = bundle.Prefetch
}

func satAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}
