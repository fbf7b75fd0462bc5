// Package linkedin extracts listings from LinkedIn's guest job search API.
package linkedin

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
	Name = "linkedin"
	// SearchURL returns HTML fragments of 25 result cards.
	SearchURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"

	defaultKeyword  = "Django"
	defaultLocation = "London"
	batchSize       = 25
)

// Sort orders accepted by the search API.
const (
	SortNewest    = "DD"
	SortOldest    = "DA"
	SortRelevance = "R"
)

// Config selects the search terms, page count and sort order.
type Config struct {
	Keyword  string
	Location string
	Pages    int
	SortBy   string
}

// Source is the LinkedIn board.
type Source struct {
	keyword  string
	location string
	pages    int
	sortBy   string
	detail   scraper.DetailFetcher
}

// New builds the source. fetcher and pacer serve the detail-page requests.
func New(cfg Config, fetcher scraper.Fetcher, pacer scraper.Pacer, logger *zap.Logger) *Source {
	s := &Source{keyword: cfg.Keyword, location: cfg.Location, pages: cfg.Pages, sortBy: cfg.SortBy}
	if s.keyword == "" {
		s.keyword = defaultKeyword
	}
	if s.location == "" {
		s.location = defaultLocation
	}
	if s.pages <= 0 {
		s.pages = 1
	}
	if s.sortBy == "" {
		s.sortBy = SortNewest
	}
	s.detail = scraper.DetailFetcher{
		Source:   Name,
		Selector: ".show-more-less-html__markup",
		Decode:   true,
		Fetcher:  fetcher,
		Pacer:    pacer,
		Logger:   logger,
	}
	return s
}

// Name implements scraper.Source.
func (s *Source) Name() string { return Name }

// Pages returns one request per batch of 25 cards.
func (s *Source) Pages() []broker.Request {
	reqs := make([]broker.Request, 0, s.pages)
	for page := 0; page < s.pages; page++ {
		q := url.Values{}
		q.Set("keywords", s.keyword)
		q.Set("location", s.location)
		q.Set("start", strconv.Itoa(page*batchSize))
		q.Set("sortBy", s.sortBy)
		reqs = append(reqs, broker.Get(SearchURL+"?"+q.Encode()))
	}
	return reqs
}

// Extract reads every card in the fragment. Links are already absolute.
func (s *Source) Extract(ctx context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find("li").Each(func(_ int, card *goquery.Selection) {
		link := scraper.Attr(card, "a.base-card__full-link", "href")
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(card, "h3.base-search-card__title"),
			Company:     scraper.Text(card, "h4.base-search-card__subtitle a"),
			Location:    scraper.Text(card, "span.job-search-card__location"),
			PostedText:  scraper.Attr(card, "time", "datetime"),
			Link:        link,
			Description: s.detail.Description(ctx, link),
		})
	})
	return jobs, nil
}
