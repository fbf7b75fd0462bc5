// Package reed extracts listings from Reed search result pages.
package reed

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

const (
	// Name is the registry key.
	Name = "reed"
	// Origin resolves relative listing links.
	Origin = "https://www.reed.co.uk"

	defaultQuery    = "django-contractor"
	defaultLocation = "london"
	defaultPages    = 2
)

// Reed ships CSS-module class names such as job-card_jobCard__MkcJD whose
// hash suffix changes between deploys, so selectors match on the stable prefix.
const (
	cardSelector    = `article.card[class*="job-card_jobCard__"]`
	titleSelector   = `h2[class*="job-card_jobResultHeading__title__"] a`
	companySelector = `div[class*="job-card_jobResultHeading__postedBy__"] a`
	descSelector    = `button[class*="job-card_btnToggleJobDescription__"]`
)

// Config selects the search slug and how many pages to walk.
type Config struct {
	Query    string
	Location string
	Pages    int
}

// Source is the Reed board.
type Source struct {
	query    string
	location string
	pages    int
}

// New builds the source.
func New(cfg Config) *Source {
	s := &Source{query: cfg.Query, location: cfg.Location, pages: cfg.Pages}
	if s.query == "" {
		s.query = defaultQuery
	}
	if s.location == "" {
		s.location = defaultLocation
	}
	if s.pages <= 0 {
		s.pages = defaultPages
	}
	return s
}

// Name implements scraper.Source.
func (s *Source) Name() string { return Name }

// Pages returns one templated search URL per page, numbered from 1. Query
// and location are path segments and are escaped as such.
func (s *Source) Pages() []broker.Request {
	query, location := url.PathEscape(s.query), url.PathEscape(s.location)
	reqs := make([]broker.Request, 0, s.pages)
	for page := 1; page <= s.pages; page++ {
		reqs = append(reqs, broker.Get(fmt.Sprintf("%s/jobs/%s-jobs-in-%s?pageno=%d", Origin, query, location, page)))
	}
	return reqs
}

// Extract reads every job card on one page. Reed has no posted text on the card.
func (s *Source) Extract(_ context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(body)
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(card, titleSelector),
			Company:     scraper.Text(card, companySelector),
			Description: scraper.Text(card, descSelector),
			Link:        scraper.ResolveLink(Origin, scraper.Attr(card, titleSelector, "href")),
		})
	})
	return jobs, nil
}
