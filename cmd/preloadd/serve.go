package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/evalgo/preloadd/internal/config"
	"github.com/evalgo/preloadd/internal/engine"
	"github.com/evalgo/preloadd/internal/logging"
	"github.com/evalgo/preloadd/internal/metrics"
	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/planner"
	"github.com/evalgo/preloadd/internal/predictor"
	"github.com/evalgo/preloadd/internal/prefetcher"
	"github.com/evalgo/preloadd/internal/repository"
	"github.com/evalgo/preloadd/internal/updater"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func buildRepository(cfg config.Config) (repository.StateRepository, error) {
	path := cfg.Persistence.StatePath
	if path == "" {
		return repository.NoopRepository{}, nil
	}
	if strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://") {
		return repository.NewPostgresRepository(context.Background(), path)
	}
	return repository.NewBoltRepository(path)
}

func buildServices(cfg config.Config, repo repository.StateRepository) (engine.Services, error) {
	admission := observation.NewMinSizePolicy(cfg.Model.MinSize, cfg.System.ExePrefix)

	scanner, err := observation.NewProcFSScanner(admission)
	if err != nil {
		return engine.Services{}, fmt.Errorf("build scanner: %w", err)
	}

	var prefetch prefetcher.Prefetcher
	if cfg.System.PrefetchConcurrency == 0 {
		prefetch = prefetcher.NoopPrefetcher{}
	} else {
		prefetch = prefetcher.NewBoundedPrefetcher(prefetcher.FadviseHinter{}, int(cfg.System.PrefetchConcurrency))
	}

	return engine.Services{
		Scanner:   scanner,
		Admission: admission,
		Updater:   updater.New(),
		Predictor: predictor.New(),
		Planner:   planner.NewGreedyPlanner(planner.UnixMetaProvider{}),
		Prefetch:  prefetch,
		Repo:      repo,
		Clock:     engine.WallClock{},
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(logging.DefaultConfig())
	instanceID := uuid.New().String()
	entry := logging.NewRunLogger(log, instanceID).Entry()

	repo, err := buildRepository(cfg)
	if err != nil {
		return fmt.Errorf("build repository: %w", err)
	}
	defer repo.Close()

	services, err := buildServices(cfg, repo)
	if err != nil {
		return err
	}

	snap, err := repo.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	now := snap.State.ModelTime
	eng, err := engine.NewFromSnapshot(cfg, services, snap, now)
	if err != nil {
		return fmt.Errorf("reconstitute stores: %w", err)
	}
	eng.SetMetrics(metrics.New(""))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controlCh := make(chan engine.ControlEvent, 1)
	installReloadHandler(ctx, controlCh, entry)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	httpAddr := viper.GetString("http.addr")
	go func() {
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("http server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		entry.Info("shutdown signal received")
		cancel()
	}()

	eng.RunUntil(ctx, controlCh, entry)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return e.Shutdown(shutdownCtx)
}

// installReloadHandler watches SIGHUP and, on receipt, re-reads the config
// file, rebuilds the admission policy, updater, predictor, planner and
// prefetcher (the scanner, repository and clock are not rebuilt), and pushes
// a Reload event onto controlCh for the engine to pick up between ticks.
func installReloadHandler(ctx context.Context, controlCh chan<- engine.ControlEvent, log *logrus.Entry) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(sighup)
				return
			case <-sighup:
				if err := viper.ReadInConfig(); err != nil {
					log.WithError(err).Warn("reload: failed to re-read config file")
					continue
				}
				cfg, err := config.Load(viper.GetViper())
				if err != nil {
					log.WithError(err).Warn("reload: failed to parse config")
					continue
				}
				bundle := buildReloadBundle(cfg)
				select {
				case controlCh <- engine.ControlEvent{Reload: &bundle}:
					log.Info("reload: queued")
				case <-ctx.Done():
				}
			}
		}
	}()
}

func buildReloadBundle(cfg config.Config) engine.ReloadBundle {
	admission := observation.NewMinSizePolicy(cfg.Model.MinSize, cfg.System.ExePrefix)

	var prefetch prefetcher.Prefetcher
	if cfg.System.PrefetchConcurrency == 0 {
		prefetch = prefetcher.NoopPrefetcher{}
	} else {
		prefetch = prefetcher.NewBoundedPrefetcher(prefetcher.FadviseHinter{}, int(cfg.System.PrefetchConcurrency))
	}

	return engine.ReloadBundle{
		Config:    cfg,
		Admission: admission,
		Updater:   updater.New(),
		Predictor: predictor.New(),
		Planner:   planner.NewGreedyPlanner(planner.UnixMetaProvider{}),
		Prefetch:  prefetch,
	}
}
