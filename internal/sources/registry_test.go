package sources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobboard-scraper/internal/sources/reed"
)

func TestBuildKeepsOrder(t *testing.T) {
	t.Parallel()

	srcs, err := Build(DefaultOrder(), Deps{})
	require.NoError(t, err)
	require.Len(t, srcs, 5)
	for i, name := range DefaultOrder() {
		require.Equal(t, name, srcs[i].Name())
	}
}

func TestBuildRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := Build([]string{"reed", "monster"}, Deps{})
	require.ErrorContains(t, err, `unknown source "monster"`)
}

func TestBuildAppliesSettings(t *testing.T) {
	t.Parallel()

	srcs, err := Build([]string{reed.Name}, Deps{Settings: map[string]Settings{
		reed.Name: {Query: "golang", Location: "bristol", Pages: 3},
	}})
	require.NoError(t, err)
	pages := srcs[0].Pages()
	require.Len(t, pages, 3)
	require.Equal(t, "https://www.reed.co.uk/jobs/golang-jobs-in-bristol?pageno=3", pages[2].URL)
}

func TestNamesIncludesOptInBoards(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"cvlibrary", "cwjobs", "indeed", "jobserve", "linkedin", "reed"}, Names())
	require.True(t, Known("linkedin"))
	require.NotContains(t, DefaultOrder(), "linkedin")
	require.False(t, Known("monster"))
}
