package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChallengeBlocked(t *testing.T) {
	t.Parallel()

	listing := "<html><body>" + strings.Repeat(`<article class="job search-card">Django dev</article>`, 60) + "</body></html>"

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"empty", "  \n", true},
		{"cloudflare title", "<html><head><title>Just a moment...</title></head></html>", true},
		{"challenge platform script", `<script src="/cdn-cgi/challenge-platform/h/b/orchestrate/jsch/v1"></script>` + listing, true},
		{"perimeterx", `<div id="px-captcha"></div>`, true},
		{"script heavy small page", `<html><script>var a=1;</script><p>t</p></html>`, true},
		{"listing page", listing, false},
		{"short plain page", "<html><body><p>No jobs found</p></body></html>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, NewChallenge(0).Blocked(tt.body))
		})
	}
}

func TestChallengeThresholdLimitsScriptCheck(t *testing.T) {
	t.Parallel()

	body := `<html><script>var a=1;</script><p>t</p></html>`
	require.False(t, NewChallenge(10).Blocked(body))
	require.Equal(t, DefaultBodyLengthThreshold, NewChallenge(0).BodyLengthThreshold)
}

func TestScriptDensityHighUnclosedScript(t *testing.T) {
	t.Parallel()

	require.True(t, scriptDensityHigh("<p>x</p><script>never closed"))
	require.True(t, scriptDensityHigh("<p>x</p><script"))
	require.False(t, scriptDensityHigh("<p>plain text only</p>"))
	require.False(t, scriptDensityHigh(""))
}
