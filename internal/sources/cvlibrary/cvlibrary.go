// Package cvlibrary extracts listings from CV-Library search results.
package cvlibrary

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

const (
	// Name is the registry key.
	Name = "cvlibrary"
	// Origin resolves relative listing links.
	Origin = "https://www.cv-library.co.uk"
	// DefaultURL is the contractor search page.
	DefaultURL = Origin + "/django-contractor-jobs?us=1"
)

// Config overrides the search page.
type Config struct {
	URL string
}

// Source is the CV-Library board.
type Source struct {
	url string
}

// New builds the source.
func New(cfg Config) *Source {
	u := cfg.URL
	if u == "" {
		u = DefaultURL
	}
	return &Source{url: u}
}

// Name implements scraper.Source.
func (s *Source) Name() string { return Name }

// Pages issues a single search request.
func (s *Source) Pages() []broker.Request {
	return []broker.Request{broker.Get(s.url)}
}

// Extract reads every search card.
func (s *Source) Extract(_ context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find("article.job.search-card").Each(func(_ int, card *goquery.Selection) {
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(card, "h2.job__title a"),
			Company:     scraper.Text(card, ".job__posted-by a"),
			Description: scraper.TextJoined(card, ".job__description", " "),
			Link:        scraper.ResolveLink(Origin, scraper.Attr(card, "h2.job__title a", "href")),
			PostedText:  scraper.Text(card, ".job__posted-by span.color-green"),
		})
	})
	return jobs, nil
}
