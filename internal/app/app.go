package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	fvcfg "fundview/internal/config"
	"fundview/internal/logger"
	"fundview/internal/scheduler"
	"fundview/internal/service"
	"fundview/internal/store/fetchlog"
	"fundview/internal/store/sqlite"
	fvhttp "fundview/internal/transport/http"
)

// App owns application-level orchestration: load config, build dependencies,
// run the HTTP dashboard and the background refresh loop.
type App struct {
	cfg       *fvcfg.Config
	service   *service.FundingService
	server    *fvhttp.Server
	snapshots *sqlite.SnapshotStore
	fetchLog  *fetchlog.Store

	refreshEvery  time.Duration // zero when the scheduler is disabled
	refreshOffset time.Duration
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *fvcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.refreshEvery > 0 {
		sched := scheduler.NewAlignedScheduler(ctx, a.refreshEvery, a.refreshOffset)
		sched.RunImmediately = true
		group.Go(func() error {
			sched.Start(a.refreshOnce(ctx))
			return nil
		})
	} else {
		logger.Infof("background refresh disabled, serving stored snapshots only")
	}

	return group.Wait()
}

// Service exposes the funding service (for replay and test harnesses).
func (a *App) Service() *service.FundingService {
	if a == nil {
		return nil
	}
	return a.service
}

func (a *App) refreshOnce(ctx context.Context) func() {
	instrument := a.cfg.History.Instrument
	return func() {
		if _, err := a.service.Refresh(ctx, instrument); err != nil {
			logger.Errorf("scheduled refresh %s failed: %v", instrument, err)
		}
	}
}

func (a *App) close() {
	if a.fetchLog != nil {
		if err := a.fetchLog.Close(); err != nil {
			logger.Warnf("closing fetch log: %v", err)
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			logger.Warnf("closing snapshot store: %v", err)
		}
	}
}
