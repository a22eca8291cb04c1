package engine

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// RunUntil drives ticks until ctx is cancelled. controlCh carries reload
// events from a single producer. A tick always runs to completion before
// cancellation or a reload is observed; cancellation mid-tick is noticed
// only at the top of the next iteration, matching the engine's cooperative
// single-threaded scheduling model.
func (e *Engine) RunUntil(ctx context.Context, controlCh <-chan ControlEvent, log *logrus.Entry) {
	lastSave := time.Now()

	for {
		select {
		case <-ctx.Done():
			if e.cfg.Persistence.SaveOnShutdown {
				if err := e.Save(context.Background(), "", 0); err != nil {
					log.WithError(err).Error("save on shutdown failed")
				}
			}
			return
		default:
		}

		start := time.Now()
		report := e.tick(ctx, log.WithField("scan_id", e.scanID+1))
		log.WithFields(logrus.Fields{
			"scan_id":        report.ScanID,
			"new_exes":       report.Delta.NewExes,
			"new_maps":       report.Delta.NewMaps,
			"new_edges":      report.Delta.NewEdges,
			"pruned":         report.Delta.PrunedEdges,
			"num_prefetch":   report.PrefetchReport.NumMaps,
			"prefetch_bytes": humanize.Bytes(report.PrefetchReport.TotalBytes),
		}).Debug("tick complete")

		elapsed := time.Since(start)

		if autosave := e.cfg.EffectiveAutosave(); autosave > 0 && time.Since(lastSave) >= autosave {
			if err := e.Save(ctx, "", 0); err != nil {
				log.WithError(err).Error("autosave failed")
			}
			lastSave = time.Now()
		}

		cycle := e.cfg.Model.Cycle
		remaining := cycle - elapsed

		if remaining <= 0 {
			// Tick ran long; check for reload/cancel without sleeping.
			select {
			case <-ctx.Done():
				continue
			case ev := <-controlCh:
				e.handleControl(ev, log)
			default:
			}
			continue
		}

		sleepDone := make(chan struct{})
		go func() {
			e.services.Clock.Sleep(ctx, uint64(remaining.Seconds()))
			close(sleepDone)
		}()

		select {
		case <-ctx.Done():
			<-sleepDone
		case ev := <-controlCh:
			e.handleControl(ev, log)
		case <-sleepDone:
		}
	}
}

func (e *Engine) handleControl(ev ControlEvent, log *logrus.Entry) {
	if ev.Reload != nil {
		e.applyReload(*ev.Reload, log)
		log.Info("reload applied")
	}
}
