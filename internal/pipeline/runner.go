// Package pipeline runs one source through fetch, extract and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/metrics"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

// State is a step of a source run.
type State string

// Run states. Failed is reachable from Fetching and Extracting.
const (
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateStoring    State = "storing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ErrSourcePanicked wraps a panic recovered from a source.
var ErrSourcePanicked = errors.New("source panicked")

// Result summarizes one source run.
type Result struct {
	Source    string        `json:"source"`
	State     State         `json:"state"`
	Pages     int           `json:"pages"`
	Documents int           `json:"documents"`
	Extracted int           `json:"extracted"`
	Stored    int           `json:"stored"`
	Dropped   int           `json:"dropped"`
	New       int           `json:"new"`
	Blocked   int           `json:"blocked,omitempty"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// RecordsProcessed is the number of records the store accepted.
func (r Result) RecordsProcessed() int {
	return r.Stored
}

// Failed reports whether the run ended in the failed state.
func (r Result) Failed() bool {
	return r.State == StateFailed
}

// BlockDetector recognizes anti-bot interstitials returned in place of a page.
type BlockDetector interface {
	Blocked(body string) bool
}

// Runner executes sources against shared collaborators.
type Runner struct {
	fetcher  scraper.Fetcher
	store    scraper.Store
	seen     scraper.SeenMarker
	clock    scraper.Clock
	detector BlockDetector
	logger   *zap.Logger
}

// New constructs a Runner. seen may be nil.
func New(
	fetcher scraper.Fetcher,
	store scraper.Store,
	seen scraper.SeenMarker,
	clock scraper.Clock,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher: fetcher,
		store:   store,
		seen:    seen,
		clock:   clock,
		logger:  logger,
	}
}

// WithDetector enables challenge detection for documents that yield no records.
func (r *Runner) WithDetector(d BlockDetector) *Runner {
	r.detector = d
	return r
}

// Run drives src to Done or Failed. It never panics and never returns an
// error; failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, src scraper.Source) (res Result) {
	start := r.clock.Now()
	res = Result{Source: src.Name(), State: StateFetching}
	logger := r.logger.With(zap.String("source", res.Source))

	defer func() {
		if p := recover(); p != nil {
			res = failed(res, fmt.Errorf("%w in %s: %v", ErrSourcePanicked, res.State, p))
		}
		res.Duration = r.clock.Since(start)
		if res.Err != nil {
			res.Error = res.Err.Error()
			logger.Error("source failed", zap.Error(res.Err), zap.Duration("duration", res.Duration))
		}
		metrics.ObserveSourceRun(res.Source, string(res.State), res.Duration)
	}()

	bodies, err := r.fetch(ctx, src, &res, logger)
	if err != nil {
		return failed(res, err)
	}

	res.State = StateExtracting
	records, err := r.extract(ctx, src, bodies, &res, logger)
	if err != nil {
		return failed(res, err)
	}
	res.Extracted = len(records)
	metrics.AddRecords(res.Source, "extracted", len(records))

	res.State = StateStoring
	r.persist(ctx, records, &res, logger)

	res.State = StateDone
	logger.Info("source complete",
		zap.Int("stored", res.Stored),
		zap.Int("dropped", res.Dropped),
		zap.Int("new", res.New),
	)
	return res
}

func (r *Runner) fetch(ctx context.Context, src scraper.Source, res *Result, logger *zap.Logger) ([]string, error) {
	pages := src.Pages()
	res.Pages = len(pages)
	bodies := make([]string, 0, len(pages))
	for i, req := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", i+1, err)
		}
		body, err := r.fetcher.Send(ctx, req)
		if err != nil {
			metrics.ObserveDocument(res.Source, "error")
			return nil, fmt.Errorf("fetch page %d: %w", i+1, err)
		}
		metrics.ObserveDocument(res.Source, "ok")
		logger.Debug("fetched page", zap.Int("page", i+1), zap.String("url", req.URL), zap.Int("bytes", len(body)))
		bodies = append(bodies, body)
	}
	res.Documents = len(bodies)
	return bodies, nil
}

func (r *Runner) extract(
	ctx context.Context,
	src scraper.Source,
	bodies []string,
	res *Result,
	logger *zap.Logger,
) ([]scraper.JobRecord, error) {
	var records []scraper.JobRecord
	for i, body := range bodies {
		recs, err := src.Extract(ctx, body)
		if errors.Is(err, scraper.ErrExtractionFailed) {
			logger.Warn("document yielded no records", zap.Int("document", i+1), zap.Error(err))
			r.checkBlocked(body, i, res, logger)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("extract document %d: %w", i+1, err)
		}
		if len(recs) == 0 {
			r.checkBlocked(body, i, res, logger)
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (r *Runner) checkBlocked(body string, i int, res *Result, logger *zap.Logger) {
	if r.detector == nil || !r.detector.Blocked(body) {
		return
	}
	res.Blocked++
	metrics.ObserveDocument(res.Source, "blocked")
	logger.Warn("document looks like an anti-bot challenge", zap.Int("document", i+1), zap.Int("bytes", len(body)))
}

func (r *Runner) persist(ctx context.Context, records []scraper.JobRecord, res *Result, logger *zap.Logger) {
	now := r.clock.Now()
	for _, rec := range records {
		rec.Source = res.Source
		rec.DatePosted = now
		if err := r.store.Upsert(ctx, rec); err != nil {
			res.Dropped++
			logger.Warn("record dropped", zap.String("link", rec.Link), zap.String("title", rec.Title), zap.Error(err))
			continue
		}
		res.Stored++
		logger.Debug("record stored", zap.String("link", rec.Link), zap.String("title", rec.Title))
		r.markSeen(ctx, rec, res, logger)
	}
	metrics.AddRecords(res.Source, "stored", res.Stored)
	metrics.AddRecords(res.Source, "dropped", res.Dropped)
}

// markSeen is best effort; a cache outage only loses the new-record count.
func (r *Runner) markSeen(ctx context.Context, rec scraper.JobRecord, res *Result, logger *zap.Logger) {
	if r.seen == nil || !rec.HasLink() {
		return
	}
	isNew, err := r.seen.MarkSeen(ctx, rec.Link)
	if err != nil {
		logger.Debug("seen marker failed", zap.String("link", rec.Link), zap.Error(err))
		return
	}
	if isNew {
		res.New++
	}
}

// failed keeps the counters gathered so far; records already upserted stay
// counted when a later step fails.
func failed(res Result, err error) Result {
	res.State = StateFailed
	res.Err = err
	return res
}
