// Package collyfetcher implements the broker transport using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultMaxBodyBytes bounds a broker reply when no limit is configured.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// MaxBodyBytes caps the reply size; negative means unlimited.
	MaxBodyBytes int
}

// HTTPError is returned when the broker answers with a non-success status.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("broker responded with status %d: %v", e.StatusCode, e.Err)
}

// Unwrap returns the collector error.
func (e *HTTPError) Unwrap() error { return e.Err }

// HTTPStatus returns the reply status code.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// Fetcher posts broker commands through a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type postResult struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher. Every call hits the same broker URL, so revisits
// are always allowed.
func New(cfg Config) *Fetcher {
	maxBody := cfg.MaxBodyBytes
	switch {
	case maxBody == 0:
		maxBody = DefaultMaxBodyBytes
	case maxBody < 0:
		maxBody = 0
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(maxBody),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Post sends payload as JSON to endpoint and returns the reply body.
func (f *Fetcher) Post(ctx context.Context, endpoint string, payload []byte, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	collector := f.baseCollector.Clone()
	collector.Context = reqCtx

	var result postResult
	f.configureCollectorHooks(collector, &result)

	if err := f.runCollector(reqCtx, collector, endpoint, payload, &result); err != nil {
		return nil, err
	}
	return result.body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *postResult) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	endpoint string,
	payload []byte,
	result *postResult,
) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Request(http.MethodPost, endpoint, bytes.NewReader(payload), nil, requestHeaders())
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("broker post canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = result.err
		}
		if err == nil {
			return nil
		}
		if result.status > 0 {
			return &HTTPError{StatusCode: result.status, Err: err}
		}
		return fmt.Errorf("broker post failed: %w", err)
	}
}

func requestHeaders() http.Header {
	return http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json, text/plain, */*"},
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
