// Package indeed extracts listings from Indeed UK, fetching each listing's
// page for the full description.
package indeed

import (
	"context"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

const (
	// Name is the registry key.
	Name = "indeed"
	// Origin resolves relative listing links.
	Origin = "https://uk.indeed.com"

	defaultQuery    = "django"
	defaultLocation = "London"
	pageSize        = 10
)

// Config selects the search terms and page count.
type Config struct {
	Query    string
	Location string
	Pages    int
}

// Source is the Indeed board.
type Source struct {
	query    string
	location string
	pages    int
	detail   scraper.DetailFetcher
}

// New builds the source. fetcher and pacer serve the detail-page requests.
func New(cfg Config, fetcher scraper.Fetcher, pacer scraper.Pacer, logger *zap.Logger) *Source {
	s := &Source{query: cfg.Query, location: cfg.Location, pages: cfg.Pages}
	if s.query == "" {
		s.query = defaultQuery
	}
	if s.location == "" {
		s.location = defaultLocation
	}
	if s.pages <= 0 {
		s.pages = 1
	}
	s.detail = scraper.DetailFetcher{
		Source:   Name,
		Selector: "#jobDescriptionText",
		Decode:   true,
		Fetcher:  fetcher,
		Pacer:    pacer,
		Logger:   logger,
	}
	return s
}

// Name implements scraper.Source.
func (s *Source) Name() string { return Name }

// Pages returns one search request per page of ten results. The search
// terms are also passed to the broker as request parameters.
func (s *Source) Pages() []broker.Request {
	reqs := make([]broker.Request, 0, s.pages)
	for page := 0; page < s.pages; page++ {
		start := strconv.Itoa(page * pageSize)
		q := url.Values{}
		q.Set("q", s.query)
		q.Set("l", s.location)
		q.Set("from", "searchOnHP")
		q.Set("start", start)

		req := broker.Get(Origin + "/jobs?" + q.Encode())
		req.Params = map[string]string{"q": s.query, "l": s.location, "start": start}
		reqs = append(reqs, req)
	}
	return reqs
}

// Extract reads every result card and fetches its detail page in order.
func (s *Source) Extract(ctx context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(scraper.DecodeEntities(body))
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find("div.job_seen_beacon").Each(func(_ int, card *goquery.Selection) {
		link := scraper.ResolveLink(Origin, scraper.Attr(card, "h2.jobTitle a", "href"))
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(card, "h2.jobTitle a"),
			Company:     scraper.Text(card, `[data-testid="company-name"]`),
			Location:    scraper.Text(card, `[data-testid="text-location"]`),
			Salary:      scraper.Text(card, `[data-testid*="salary-snippet"]`),
			PostedText:  scraper.Text(card, `span.date, span[aria-label*="ago"]`),
			Link:        link,
			Description: s.detail.Description(ctx, link),
		})
	})
	return jobs, nil
}
