package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestAddRecordsIgnoresNonPositive(t *testing.T) {
	AddRecords("metrics-test", "stored", 3)
	AddRecords("metrics-test", "stored", 0)
	AddRecords("metrics-test", "stored", -2)

	if val := testutil.ToFloat64(recordsTotal.WithLabelValues("metrics-test", "stored")); val != 3 {
		t.Errorf("expected 3 stored records, got %f", val)
	}
}

func TestObserveSourceRun(t *testing.T) {
	ObserveSourceRun("metrics-run-test", "done", 2*time.Second)
	ObserveSourceRun("metrics-run-test", "failed", time.Second)

	if val := testutil.ToFloat64(sourceRunsTotal.WithLabelValues("metrics-run-test", "done")); val != 1 {
		t.Errorf("expected one done run, got %f", val)
	}
	if val := testutil.ToFloat64(sourceRunsTotal.WithLabelValues("metrics-run-test", "failed")); val != 1 {
		t.Errorf("expected one failed run, got %f", val)
	}
}

func TestObserveBrokerRequest(t *testing.T) {
	ObserveBrokerRequest("metrics.test", "ok", 300*time.Millisecond)

	if val := testutil.ToFloat64(brokerRequestsTotal.WithLabelValues("metrics.test", "ok")); val != 1 {
		t.Errorf("expected one broker request, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
