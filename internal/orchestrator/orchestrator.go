// Package orchestrator runs every configured source and aggregates the outcome.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobboard-scraper/internal/pipeline"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

// SourceRunner executes one source.
type SourceRunner interface {
	Run(ctx context.Context, src scraper.Source) pipeline.Result
}

// Config controls fan-out.
type Config struct {
	// Concurrency is the number of sources run at once. Values below 2 run
	// sources strictly one after another.
	Concurrency int
}

// Summary aggregates one batch of source runs.
type Summary struct {
	RunID     string            `json:"run_id"`
	Started   time.Time         `json:"started"`
	Finished  time.Time         `json:"finished"`
	Elapsed   time.Duration     `json:"elapsed"`
	Results   []pipeline.Result `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Stored    int               `json:"stored"`
}

// Orchestrator drives sources through a SourceRunner.
type Orchestrator struct {
	runner SourceRunner
	ids    scraper.IDGenerator
	clock  scraper.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs an Orchestrator.
func New(runner SourceRunner, ids scraper.IDGenerator, clock scraper.Clock, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner: runner,
		ids:    ids,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// RunAll runs every source under a fresh run ID.
func (o *Orchestrator) RunAll(ctx context.Context, sources []scraper.Source) Summary {
	return o.Run(ctx, o.NewRunID(), sources)
}

// Run runs every source and always returns a complete Summary. Results keep
// the order of sources regardless of concurrency.
func (o *Orchestrator) Run(ctx context.Context, runID string, sources []scraper.Source) Summary {
	started := o.clock.Now()
	summary := Summary{
		RunID:   runID,
		Started: started,
		Results: make([]pipeline.Result, len(sources)),
	}
	logger := o.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("run started", zap.Int("sources", len(sources)))

	if o.cfg.Concurrency < 2 {
		for i, src := range sources {
			summary.Results[i] = o.runOne(ctx, src, logger)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.cfg.Concurrency)
		for i, src := range sources {
			g.Go(func() error {
				summary.Results[i] = o.runOne(ctx, src, logger)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, res := range summary.Results {
		if res.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		summary.Stored += res.RecordsProcessed()
	}
	summary.Finished = o.clock.Now()
	summary.Elapsed = o.clock.Since(started)

	logger.Info("run finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("stored", summary.Stored),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary
}

func (o *Orchestrator) runOne(ctx context.Context, src scraper.Source, logger *zap.Logger) (res pipeline.Result) {
	name := src.Name()
	defer func() {
		if p := recover(); p != nil {
			res = pipeline.Result{
				Source: name,
				State:  pipeline.StateFailed,
				Err:    fmt.Errorf("%w: %v", pipeline.ErrSourcePanicked, p),
			}
			res.Error = res.Err.Error()
			logger.Error("source runner panicked", zap.String("source", name), zap.Any("panic", p))
		}
	}()
	logger.Info("starting source", zap.String("source", name))
	return o.runner.Run(ctx, src)
}

// NewRunID returns a generated ID, falling back to a timestamp when the
// generator fails.
func (o *Orchestrator) NewRunID() string {
	if o.ids != nil {
		if id, err := o.ids.NewID(); err == nil {
			return id
		}
	}
	return fmt.Sprintf("run-%d", o.clock.Now().UnixNano())
}
