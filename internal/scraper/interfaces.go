package scraper

import (
	"context"
	"time"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
)

// Source is one job board: a fetch plan plus an extractor for its markup.
type Source interface {
	// Name is the registry key used in config and logs.
	Name() string
	// Pages returns the broker requests to issue, in document order.
	Pages() []broker.Request
	// Extract turns one fetched document into records. Missing fields are
	// returned as empty strings; only an unparseable document is an error.
	Extract(ctx context.Context, body string) ([]JobRecord, error)
}

// Fetcher sends a command to the broker and returns the document body.
type Fetcher interface {
	Send(ctx context.Context, req broker.Request) (string, error)
}

// Store persists records keyed by link.
type Store interface {
	Upsert(ctx context.Context, record JobRecord) error
}

// SeenMarker records that a link was stored and reports whether it is new.
type SeenMarker interface {
	MarkSeen(ctx context.Context, link string) (bool, error)
}

// Pacer spaces out requests to the same origin.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
