// Package sources registers the job boards the scraper knows how to read.
package sources

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/scraper"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/cvlibrary"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/cwjobs"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/indeed"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/jobserve"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/linkedin"
	"github.com/JakeFAU/jobboard-scraper/internal/sources/reed"
)

// Settings holds per-board overrides. Boards ignore fields they do not use.
type Settings struct {
	URL       string   `mapstructure:"url"`
	Query     string   `mapstructure:"query"`
	Location  string   `mapstructure:"location"`
	Pages     int      `mapstructure:"pages"`
	SortBy    string   `mapstructure:"sort_by"`
	SessionID string   `mapstructure:"session_id"`
	JobIDs    []string `mapstructure:"job_ids"`
}

// Deps are the collaborators boards with detail fetches need.
type Deps struct {
	Fetcher  scraper.Fetcher
	Pacer    scraper.Pacer
	Logger   *zap.Logger
	Settings map[string]Settings
}

type constructor func(Settings, Deps) scraper.Source

var registry = map[string]constructor{
	cvlibrary.Name: func(s Settings, _ Deps) scraper.Source {
		return cvlibrary.New(cvlibrary.Config{URL: s.URL})
	},
	cwjobs.Name: func(s Settings, _ Deps) scraper.Source {
		return cwjobs.New(cwjobs.Config{URL: s.URL})
	},
	jobserve.Name: func(s Settings, _ Deps) scraper.Source {
		return jobserve.New(jobserve.Config{SessionID: s.SessionID, JobIDs: s.JobIDs, Pages: s.Pages})
	},
	reed.Name: func(s Settings, _ Deps) scraper.Source {
		return reed.New(reed.Config{Query: s.Query, Location: s.Location, Pages: s.Pages})
	},
	indeed.Name: func(s Settings, d Deps) scraper.Source {
		return indeed.New(indeed.Config{Query: s.Query, Location: s.Location, Pages: s.Pages}, d.Fetcher, d.Pacer, d.Logger)
	},
	linkedin.Name: func(s Settings, d Deps) scraper.Source {
		return linkedin.New(
			linkedin.Config{Keyword: s.Query, Location: s.Location, Pages: s.Pages, SortBy: s.SortBy},
			d.Fetcher, d.Pacer, d.Logger,
		)
	},
}

// DefaultOrder is the run order when none is configured. LinkedIn is
// registered but opt-in.
func DefaultOrder() []string {
	return []string{cvlibrary.Name, cwjobs.Name, jobserve.Name, reed.Name, indeed.Name}
}

// Names lists every registered board, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name is registered.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Build constructs the named boards in order. Unknown names are an error.
func Build(names []string, deps Deps) ([]scraper.Source, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	out := make([]scraper.Source, 0, len(names))
	for _, name := range names {
		build, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (known: %v)", name, Names())
		}
		out = append(out, build(deps.Settings[name], deps))
	}
	return out, nil
}
