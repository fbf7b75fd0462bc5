// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/api"
	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/cache"
	"github.com/JakeFAU/jobboard-scraper/internal/clock/system"
	"github.com/JakeFAU/jobboard-scraper/internal/config"
	"github.com/JakeFAU/jobboard-scraper/internal/detector"
	collyfetcher "github.com/JakeFAU/jobboard-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/jobboard-scraper/internal/id/uuid"
	"github.com/JakeFAU/jobboard-scraper/internal/orchestrator"
	"github.com/JakeFAU/jobboard-scraper/internal/pipeline"
	"github.com/JakeFAU/jobboard-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
	"github.com/JakeFAU/jobboard-scraper/internal/sources"
	"github.com/JakeFAU/jobboard-scraper/internal/storage/memory"
	"github.com/JakeFAU/jobboard-scraper/internal/storage/postgres"
	"github.com/JakeFAU/jobboard-scraper/internal/storage/sqlite"
)

// App holds the shared, long-lived services. The store and cache
// connections are opened once and reused by every source.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	broker       *broker.Client
	store        scraper.Store
	dbCheck      api.Checker
	closeStore   func()
	cache        *cache.SeenCache
	sources      []scraper.Source
	orchestrator *orchestrator.Orchestrator
}

// New wires every service from cfg. Store and cache connection failures are
// logged rather than returned: the run proceeds and records are dropped.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	transport := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Broker.UserAgent,
		MaxBodyBytes: cfg.Broker.MaxBodyBytes,
	})
	a.broker = broker.New(cfg.Broker.URL, transport, logger.Named("broker")).WithMaxTimeout(cfg.Broker.MaxTimeout)

	a.openStore(ctx)
	a.openCache(ctx)

	pacer := ratelimit.New(ratelimit.Config{Interval: cfg.Scrape.DetailDelay})
	srcs, err := sources.Build(cfg.Scrape.Sources, sources.Deps{
		Fetcher:  a.broker,
		Pacer:    pacer,
		Logger:   logger.Named("sources"),
		Settings: cfg.Sources,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build sources: %w", err)
	}
	a.sources = srcs

	var seen scraper.SeenMarker
	if a.cache != nil {
		seen = a.cache
	}
	clk := system.New()
	runner := pipeline.New(a.broker, a.store, seen, clk, logger.Named("pipeline")).
		WithDetector(detector.NewChallenge(0))
	a.orchestrator = orchestrator.New(
		runner,
		uuid.New(),
		clk,
		orchestrator.Config{Concurrency: cfg.Scrape.Concurrency},
		logger.Named("orchestrator"),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) {
	switch a.cfg.DB.Driver {
	case config.DriverMemory:
		a.logger.Info("using in-memory store; records are discarded on exit")
		a.store = memory.NewJobStore()
	case config.DriverSQLite:
		a.openSQLite(ctx)
	default:
		a.openPostgres(ctx)
	}
}

func (a *App) openPostgres(ctx context.Context) {
	store, err := postgres.NewJobStore(ctx, postgres.JobStoreConfig{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
	})
	// A nil *JobStore answers every call with ErrStoreUnavailable.
	a.store, a.dbCheck = store, store
	if err != nil {
		a.logger.Error("postgres unavailable; records will be dropped", zap.Error(err))
		return
	}
	a.closeStore = store.Close
	a.ensureSchema(ctx, store)
	a.logger.Info("connected to postgres", zap.String("table", a.cfg.DB.Table))
}

func (a *App) openSQLite(ctx context.Context) {
	store, err := sqlite.NewJobStore(ctx, sqlite.JobStoreConfig{Path: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
	a.store, a.dbCheck = store, store
	if err != nil {
		a.logger.Error("sqlite unavailable; records will be dropped", zap.Error(err))
		return
	}
	a.closeStore = store.Close
	a.ensureSchema(ctx, store)
	a.logger.Info("opened sqlite store", zap.String("path", a.cfg.DB.DSN))
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

func (a *App) ensureSchema(ctx context.Context, store schemaEnsurer) {
	if !a.cfg.DB.EnsureSchema {
		return
	}
	if err := store.EnsureSchema(ctx); err != nil {
		a.logger.Error("ensure schema failed", zap.Error(err))
	}
}

func (a *App) openCache(ctx context.Context) {
	if !a.cfg.Cache.Enabled {
		return
	}
	c, err := cache.New(ctx, cache.Config{URL: a.cfg.Cache.URL, Prefix: a.cfg.Cache.Prefix, TTL: a.cfg.Cache.TTL})
	if err != nil {
		a.logger.Warn("redis unavailable; new-record counts disabled", zap.Error(err))
		return
	}
	a.cache = c
	a.logger.Info("connected to redis")
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Store exposes the record store.
func (a *App) Store() scraper.Store { return a.store }

// Sources returns the configured boards in run order.
func (a *App) Sources() []scraper.Source { return a.sources }

// SourceNames returns the configured board names in run order.
func (a *App) SourceNames() []string {
	names := make([]string, 0, len(a.sources))
	for _, src := range a.sources {
		names = append(names, src.Name())
	}
	return names
}

// NewRunID allocates a run identifier.
func (a *App) NewRunID() string { return a.orchestrator.NewRunID() }

// Orchestrator returns the batch runner.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// RunAll scrapes every configured source once.
func (a *App) RunAll(ctx context.Context) orchestrator.Summary {
	return a.orchestrator.RunAll(ctx, a.sources)
}

// Run scrapes every configured source under runID.
func (a *App) Run(ctx context.Context, runID string) orchestrator.Summary {
	return a.orchestrator.Run(ctx, runID, a.sources)
}

// Checks returns readiness probes for the external connections in use.
func (a *App) Checks() map[string]api.Checker {
	checks := map[string]api.Checker{}
	if a.dbCheck != nil {
		checks["db"] = a.dbCheck
	}
	if a.cfg.Cache.Enabled {
		checks["cache"] = a.cache
	}
	return checks
}

// Close releases the store and cache connections.
func (a *App) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("close cache", zap.Error(err))
	}
}
