// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sourceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_source_runs_total",
			Help: "Total number of source pipeline runs, labeled by source and final state.",
		},
		[]string{"source", "state"},
	)

	sourceRunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_source_run_duration_seconds",
			Help:    "Histogram of source pipeline durations, labeled by source.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"source"},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Total number of job records, labeled by source and outcome (extracted, stored, dropped, new).",
		},
		[]string{"source", "outcome"},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_documents_total",
			Help: "Total number of fetched documents, labeled by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	detailFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_detail_fetches_total",
			Help: "Total number of detail page fetches, labeled by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	brokerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_requests_total",
			Help: "Total number of broker commands, labeled by command and outcome.",
		},
		[]string{"cmd", "outcome"},
	)

	brokerRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_request_duration_seconds",
			Help:    "Histogram of broker command latencies, labeled by command.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 70},
		},
		[]string{"cmd"},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_rate_limit_delays_seconds",
			Help:    "Histogram of politeness wait durations, labeled by domain.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"domain"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSourceRun records the final state and duration of one source run.
func ObserveSourceRun(source, state string, duration time.Duration) {
	sourceRunsTotal.WithLabelValues(source, state).Inc()
	sourceRunDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// AddRecords adds n records with the given outcome for a source.
func AddRecords(source, outcome string, n int) {
	if n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// ObserveDocument counts one fetched document by extraction outcome.
func ObserveDocument(source, outcome string) {
	documentsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveDetailFetch counts one detail page fetch.
func ObserveDetailFetch(source, outcome string) {
	detailFetchesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveBrokerRequest records one broker command.
func ObserveBrokerRequest(cmd, outcome string, duration time.Duration) {
	brokerRequestsTotal.WithLabelValues(cmd, outcome).Inc()
	brokerRequestDurationSeconds.WithLabelValues(cmd).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
