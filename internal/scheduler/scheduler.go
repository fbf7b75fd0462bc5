// Package scheduler serializes batch runs and keeps their summaries.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/orchestrator"
)

// ErrRunInProgress is returned when a trigger arrives while a run is active.
var ErrRunInProgress = errors.New("run already in progress")

// DefaultHistory is the number of summaries retained.
const DefaultHistory = 20

// RunFunc executes one batch under runID.
type RunFunc func(ctx context.Context, runID string) orchestrator.Summary

// IDFunc allocates run IDs.
type IDFunc func() string

// Config controls retention.
type Config struct {
	History int
}

// Scheduler allows one run at a time.
type Scheduler struct {
	run    RunFunc
	newID  IDFunc
	logger *zap.Logger
	limit  int

	mu      sync.Mutex
	idle    *sync.Cond
	active  string
	history []orchestrator.Summary
}

// New constructs a Scheduler.
func New(run RunFunc, newID IDFunc, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.History
	if limit <= 0 {
		limit = DefaultHistory
	}
	s := &Scheduler{run: run, newID: newID, logger: logger, limit: limit}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// RunNow executes a batch and blocks until it finishes.
func (s *Scheduler) RunNow(ctx context.Context) (orchestrator.Summary, error) {
	runID, err := s.claim()
	if err != nil {
		return orchestrator.Summary{}, err
	}
	return s.execute(ctx, runID), nil
}

// Start launches a batch in the background and returns its ID. The run
// uses ctx for cancellation, so callers pass a long-lived context.
func (s *Scheduler) Start(ctx context.Context) (string, error) {
	runID, err := s.claim()
	if err != nil {
		return "", err
	}
	go s.execute(ctx, runID)
	return runID, nil
}

// Loop runs a batch immediately and then every interval until ctx ends.
// Ticks that land while a run is active are skipped.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Info("scheduled run skipped", zap.Error(err))
	}
}

// Wait blocks until no run is active, whether it was started by Start,
// RunNow or Loop.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.active != "" {
		s.idle.Wait()
	}
}

// Active returns the ID of the run in progress, if any.
func (s *Scheduler) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// Latest returns the most recent finished summary.
func (s *Scheduler) Latest() (orchestrator.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return orchestrator.Summary{}, false
	}
	return s.history[len(s.history)-1], true
}

// Get returns a finished summary by run ID.
func (s *Scheduler) Get(runID string) (orchestrator.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].RunID == runID {
			return s.history[i], true
		}
	}
	return orchestrator.Summary{}, false
}

// History returns finished summaries, oldest first.
func (s *Scheduler) History() []orchestrator.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orchestrator.Summary, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) claim() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		return "", ErrRunInProgress
	}
	s.active = s.newID()
	return s.active, nil
}

// execute always releases the active slot, even when run panics.
func (s *Scheduler) execute(ctx context.Context, runID string) (summary orchestrator.Summary) {
	defer func() {
		p := recover()
		s.mu.Lock()
		defer s.mu.Unlock()
		if p != nil {
			s.logger.Error("run panicked", zap.String("run_id", runID), zap.Any("panic", p))
			summary = orchestrator.Summary{RunID: runID}
		}
		s.active = ""
		s.history = append(s.history, summary)
		if len(s.history) > s.limit {
			s.history = s.history[len(s.history)-s.limit:]
		}
		s.idle.Broadcast()
	}()
	return s.run(ctx, runID)
}
