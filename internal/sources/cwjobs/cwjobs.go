// Package cwjobs extracts listings from CWJobs search results.
package cwjobs

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

const (
	// Name is the registry key.
	Name = "cwjobs"
	// Origin resolves relative listing links.
	Origin = "https://www.cwjobs.co.uk"
	// DefaultURL is the London contract search page.
	DefaultURL = Origin + "/jobs/django-contract/in-london?radius=30&searchOrigin=Resultlist_top-search"
)

// Config overrides the search page.
type Config struct {
	URL string
}

// Source is the CWJobs board.
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

// Extract reads every job item. The markup is keyed on data-testid and
// data-at attributes rather than class names.
func (s *Source) Extract(_ context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find(`article[data-testid="job-item"]`).Each(func(_ int, card *goquery.Selection) {
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(card, `[data-testid="job-item-title"]`),
			Company:     scraper.Text(card, `[data-at="job-item-company-name"]`),
			Location:    scraper.Text(card, `[data-at="job-item-location"]`),
			Salary:      scraper.Text(card, `[data-at="job-item-salary-info"]`),
			Description: scraper.TextJoined(card, `[data-at="jobcard-content"]`, " "),
			PostedText:  scraper.Text(card, `[data-at="job-item-timeago"]`),
			Link:        scraper.ResolveLink(Origin, scraper.Attr(card, `a[data-at="job-item-title"]`, "href")),
		})
	})
	return jobs, nil
}
