// Package jobserve extracts listings from the JobServe search web service.
//
// The service answers with an XML envelope whose payload is entity-encoded
// HTML, so bodies are unescaped before parsing.
package jobserve

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
)

const (
	// Name is the registry key.
	Name = "jobserve"
	// Origin resolves relative listing links.
	Origin = "https://jobserve.com"
	// SearchURL is the RetrieveJobs endpoint.
	SearchURL = Origin + "/WebServices/JobSearch.asmx/RetrieveJobs"
	// DefaultSessionID is the search handle the service issued to a browser session.
	DefaultSessionID = "FA2A016D3A8D7AED9536"
)

// DefaultJobIDs are the listing tokens bound to DefaultSessionID.
var DefaultJobIDs = []string{
	"CC63F910C3F64BEDD4",
	"98B8FACED3D7C8415A",
	"84BB13E2FBA268EABB",
	"0F920EE53C27414151",
	"1ACB54BB4164C389EB",
}

// Config carries the session-bound search tokens. They are opaque and
// expire with the session that produced them.
type Config struct {
	SessionID string
	JobIDs    []string
	Pages     int
}

// Source is the JobServe board.
type Source struct {
	sessionID string
	jobIDs    []string
	pages     int
}

// New builds the source.
func New(cfg Config) *Source {
	s := &Source{sessionID: cfg.SessionID, jobIDs: cfg.JobIDs, pages: cfg.Pages}
	if s.sessionID == "" {
		s.sessionID = DefaultSessionID
	}
	if len(s.jobIDs) == 0 {
		s.jobIDs = append([]string(nil), DefaultJobIDs...)
	}
	if s.pages <= 0 {
		s.pages = 1
	}
	return s
}

// Name implements scraper.Source.
func (s *Source) Name() string { return Name }

// Pages posts one RetrieveJobs form per result page, starting at 1.
func (s *Source) Pages() []broker.Request {
	ids := strings.Join(s.jobIDs, "#")
	reqs := make([]broker.Request, 0, s.pages)
	for page := 1; page <= s.pages; page++ {
		form := url.Values{}
		form.Set("shid", s.sessionID)
		form.Set("jobIDsStr", ids)
		form.Set("pageNum", strconv.Itoa(page))
		reqs = append(reqs, broker.Post(SearchURL, form))
	}
	return reqs
}

// Extract decodes the envelope and reads every job item.
func (s *Source) Extract(_ context.Context, body string) ([]scraper.JobRecord, error) {
	doc, err := scraper.ParseDocument(scraper.DecodeEntities(body))
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobRecord
	doc.Find(".jobItem").Each(func(_ int, item *goquery.Selection) {
		jobs = append(jobs, scraper.JobRecord{
			Source:      Name,
			Title:       scraper.Text(item, ".jobResultsTitle"),
			Company:     scraper.Text(item, ".jobResultsCompany"),
			Description: scraper.Text(item, ".jobResultsDesc"),
			PostedText:  scraper.Text(item, ".when"),
			Link:        scraper.ResolveLink(Origin, scraper.Attr(item, ".jobResultsTitle a", "href")),
		})
	})
	return jobs, nil
}
