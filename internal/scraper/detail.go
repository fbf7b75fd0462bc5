package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/metrics"
)

// DetailFetcher pulls the full description from a listing's own page for
// boards whose result cards carry only a snippet.
type DetailFetcher struct {
	Source   string
	Selector string
	// Decode unescapes the detail body before parsing.
	Decode  bool
	Fetcher Fetcher
	Pacer   Pacer
	Logger  *zap.Logger
}

// Description returns the detail text for link. Failures are logged and
// yield "" so the listing is still emitted.
func (d DetailFetcher) Description(ctx context.Context, link string) string {
	if link == "" || d.Fetcher == nil {
		return ""
	}
	text, err := d.fetch(ctx, link)
	if err != nil {
		metrics.ObserveDetailFetch(d.Source, "error")
		d.logger().Warn("detail fetch failed",
			zap.String("source", d.Source),
			zap.String("link", link),
			zap.Error(err),
		)
		return ""
	}
	metrics.ObserveDetailFetch(d.Source, "ok")
	return text
}

func (d DetailFetcher) fetch(ctx context.Context, link string) (string, error) {
	if d.Pacer != nil {
		if err := d.Pacer.Wait(ctx, link); err != nil {
			return "", fmt.Errorf("%w: %w", ErrDetailFetchFailed, err)
		}
	}
	body, err := d.Fetcher.Send(ctx, broker.Get(link))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDetailFetchFailed, err)
	}
	if d.Decode {
		body = DecodeEntities(body)
	}
	doc, err := ParseDocument(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDetailFetchFailed, err)
	}
	return TextJoined(doc.Selection, d.Selector, " "), nil
}

func (d DetailFetcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
