package app

import (
	"context"
	"fmt"
	"time"

	"fundview/internal/catalog"
	fvcfg "fundview/internal/config"
	"fundview/internal/export"
	"fundview/internal/funding"
	"fundview/internal/gateway/deribit"
	"fundview/internal/logger"
	"fundview/internal/service"
	"fundview/internal/store/fetchlog"
	"fundview/internal/store/sqlite"
	fvhttp "fundview/internal/transport/http"
)

type AppBuilder struct {
	cfg *fvcfg.Config

	registryFn func(string) (*catalog.Registry, error)
	snapshotFn func(string) (*sqlite.SnapshotStore, error)
	fetchLogFn func(string) (*fetchlog.Store, error)
	clientFn   func(fvcfg.ExchangeConfig) *deribit.Client
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *fvcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		registryFn: catalog.NewRegistry,
		snapshotFn: sqlite.NewSnapshotStore,
		fetchLogFn: fetchlog.NewStore,
		clientFn:   buildExchangeClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildExchangeClient(cfg fvcfg.ExchangeConfig) *deribit.Client {
	return deribit.New(deribit.Config{
		BaseURL:      cfg.ResolveBaseURL(),
		HTTPTimeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		RateLimit:    cfg.RateLimitPerSecond,
		RateBurst:    cfg.RateBurst,
		Retries:      cfg.Retries,
		RetryBackoff: time.Duration(cfg.RetryBackoffSeconds * float64(time.Second)),
	})
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	oldest, err := funding.ParseMonth(cfg.History.OldestMonth)
	if err != nil {
		return nil, fmt.Errorf("history.oldest_month: %w", err)
	}

	registry, err := b.registryFn(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load instrument catalog: %w", err)
	}
	logger.Infof("✓ instrument catalog ready: %v", registry.Names())

	snapshots, err := b.snapshotFn(cfg.Store.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	fetchLog, err := b.fetchLogFn(cfg.Store.FetchLogPath)
	if err != nil {
		snapshots.Close()
		return nil, fmt.Errorf("open fetch log: %w", err)
	}

	client := b.clientFn(cfg.Exchange)
	svc := service.New(client, snapshots, fetchLog, oldest)
	registry.OnChange(func(snap catalog.Snapshot) {
		logger.Infof("instrument catalog reloaded (v%d), dropping cached series", snap.Version)
		svc.Invalidate()
	})

	router := fvhttp.NewRouter(svc, registry, export.NewMonthlyCSV(client), fetchLog, oldest)
	server, err := fvhttp.NewServer(fvhttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Router: router,
	})
	if err != nil {
		snapshots.Close()
		fetchLog.Close()
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		service:   svc,
		server:    server,
		snapshots: snapshots,
		fetchLog:  fetchLog,
	}
	if every, ok := cfg.History.RefreshEvery(); ok {
		app.refreshEvery = every
		app.refreshOffset = time.Duration(cfg.History.RefreshOffsetSeconds) * time.Second
	}
	return app, nil
}
