package indeed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobboard-scraper/internal/broker"
)

const resultsPage = `<html><body>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a href="/rc/clk?jk=abc123">Django Engineer</a></h2>
  <span data-testid="company-name">Umbrella</span>
  <div data-testid="text-location">London</div>
  <div data-testid="attribute_snippet_testid salary-snippet-container">£70,000 a year</div>
  <span class="date">Posted 3 days ago</span>
</div>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a href="/rc/clk?jk=def456">Backend Dev</a></h2>
</div>
<div class="job_seen_beacon">
  <span data-testid="company-name">No Link Ltd</span>
</div>
</body></html>`

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	fail   map[string]bool
	calls  []string
}

func (f *fakeFetcher) Send(_ context.Context, req broker.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	if f.fail[req.URL] {
		return "", errors.New("broker timeout")
	}
	return f.bodies[req.URL], nil
}

type countingPacer struct {
	waits []string
}

func (p *countingPacer) Wait(_ context.Context, rawURL string) error {
	p.waits = append(p.waits, rawURL)
	return nil
}

func TestExtractFetchesDetails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		bodies: map[string]string{
			"https://uk.indeed.com/rc/clk?jk=abc123": `&lt;div id="jobDescriptionText"&gt;&lt;p&gt;Own the API.&lt;/p&gt;&lt;p&gt;Hybrid.&lt;/p&gt;&lt;/div&gt;`,
		},
		fail: map[string]bool{"https://uk.indeed.com/rc/clk?jk=def456": true},
	}
	pacer := &countingPacer{}

	jobs, err := New(Config{}, fetcher, pacer, nil).Extract(context.Background(), resultsPage)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	first := jobs[0]
	require.Equal(t, "Django Engineer", first.Title)
	require.Equal(t, "Umbrella", first.Company)
	require.Equal(t, "London", first.Location)
	require.Equal(t, "£70,000 a year", first.Salary)
	require.Equal(t, "Posted 3 days ago", first.PostedText)
	require.Equal(t, "https://uk.indeed.com/rc/clk?jk=abc123", first.Link)
	require.Equal(t, "Own the API. Hybrid.", first.Description)

	// A failed detail fetch still emits the listing.
	require.Equal(t, "Backend Dev", jobs[1].Title)
	require.Empty(t, jobs[1].Description)

	// No link means no detail fetch.
	require.Empty(t, jobs[2].Link)
	require.Equal(t, "No Link Ltd", jobs[2].Company)

	require.Equal(t, []string{
		"https://uk.indeed.com/rc/clk?jk=abc123",
		"https://uk.indeed.com/rc/clk?jk=def456",
	}, fetcher.calls)
	require.Equal(t, fetcher.calls, pacer.waits)
}

func TestPagesOffsetByTen(t *testing.T) {
	t.Parallel()

	pages := New(Config{Query: "golang", Location: "Leeds", Pages: 3}, nil, nil, nil).Pages()
	require.Len(t, pages, 3)
	for i, want := range []string{"0", "10", "20"} {
		require.Equal(t, map[string]string{"q": "golang", "l": "Leeds", "start": want}, pages[i].Params)
		require.Contains(t, pages[i].URL, "start="+want)
		require.Contains(t, pages[i].URL, "q=golang")
	}
}

func TestPagesDefaults(t *testing.T) {
	t.Parallel()

	pages := New(Config{}, nil, nil, nil).Pages()
	require.Len(t, pages, 1)
	require.Equal(t, "https://uk.indeed.com/jobs?from=searchOnHP&l=London&q=django&start=0", pages[0].URL)
}
