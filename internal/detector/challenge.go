// Package detector recognizes broker replies that are anti-bot interstitials
// rather than board content.
package detector

import (
	"strings"
)

// DefaultBodyLengthThreshold is the size below which a script-heavy page is
// treated as an interstitial.
const DefaultBodyLengthThreshold = 2048

// Challenge implements a handful of rule-based checks.
type Challenge struct {
	BodyLengthThreshold int
}

// NewChallenge creates a detector. Zero selects DefaultBodyLengthThreshold.
func NewChallenge(threshold int) *Challenge {
	if threshold == 0 {
		threshold = DefaultBodyLengthThreshold
	}
	return &Challenge{BodyLengthThreshold: threshold}
}

var challengeMarkers = []string{
	"cf-browser-verification",
	"/cdn-cgi/challenge-platform",
	"<title>just a moment...</title>",
	"attention required! | cloudflare",
	"px-captcha",
	"id=\"challenge-form\"",
}

// Blocked reports whether body looks like a challenge page.
func (c *Challenge) Blocked(body string) bool {
	if strings.TrimSpace(body) == "" {
		return true
	}
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return len(lower) < c.BodyLengthThreshold && scriptDensityHigh(lower)
}

// scriptDensityHigh expects a lowercased document.
func scriptDensityHigh(lower string) bool {
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag; count the rest of the document.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		nextSearch := total
		if relativeEnd != -1 {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	return scriptCoverage*100/total >= 25
}
