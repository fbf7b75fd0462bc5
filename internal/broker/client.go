// Package broker talks to a FlareSolverr-style anti-bot broker: it sends
// request.get / request.post commands and returns the rendered document.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/metrics"
)

// Poster delivers a JSON payload to the broker endpoint and returns the raw
// response body. Non-2xx replies must be reported as errors.
type Poster interface {
	Post(ctx context.Context, endpoint string, payload []byte, timeout time.Duration) ([]byte, error)
}

// Client sends commands to the broker. It never retries; callers decide.
type Client struct {
	endpoint   string
	poster     Poster
	logger     *zap.Logger
	maxTimeout time.Duration
}

// New constructs a Client. An empty endpoint yields a client whose every call
// fails with ErrBrokerUnavailable.
func New(endpoint string, poster Poster, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		poster:   poster,
		logger:   logger,
	}
}

// WithMaxTimeout sets the solve timeout for requests that do not carry
// their own. Non-positive values keep DefaultMaxTimeout.
func (c *Client) WithMaxTimeout(d time.Duration) *Client {
	c.maxTimeout = d
	return c
}

// Endpoint returns the configured broker URL.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

type solution struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Response string `json:"response"`
}

type reply struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Solution *solution `json:"solution"`
}

// Send issues req and returns the document body.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	if c == nil || c.endpoint == "" || c.poster == nil {
		return "", ErrBrokerUnavailable
	}
	if req.MaxTimeout <= 0 {
		req.MaxTimeout = c.maxTimeout
	}
	cmd := req.command()
	payload, err := buildPayload(req)
	if err != nil {
		return "", &RequestError{Command: cmd, URL: req.URL, Err: err}
	}

	start := time.Now()
	raw, err := c.poster.Post(ctx, c.endpoint, payload, req.networkTimeout())
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveBrokerRequest(cmd, "error", elapsed)
		c.logger.Warn("broker request failed",
			zap.String("cmd", cmd),
			zap.String("url", req.URL),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", &RequestError{Command: cmd, URL: req.URL, StatusCode: statusOf(err), Err: err}
	}

	body, err := decodeReply(raw)
	if err != nil {
		metrics.ObserveBrokerRequest(cmd, "error", elapsed)
		return "", &RequestError{Command: cmd, URL: req.URL, Err: err}
	}
	metrics.ObserveBrokerRequest(cmd, "ok", elapsed)
	c.logger.Debug("broker request succeeded",
		zap.String("cmd", cmd),
		zap.String("url", req.URL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", elapsed),
	)
	return body, nil
}

func buildPayload(req Request) ([]byte, error) {
	payload := map[string]any{
		"cmd":        req.command(),
		"url":        req.URL,
		"maxTimeout": req.maxTimeout().Milliseconds(),
	}
	for k, v := range req.Params {
		payload[k] = v
	}
	if data := req.postData(); data != "" {
		payload["postData"] = data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

// decodeReply extracts solution.response from a structured reply. Bodies that
// are not a JSON object are returned as-is.
func decodeReply(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return string(raw), nil
	}
	var r reply
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return string(raw), nil
	}
	if r.Status == "error" {
		msg := r.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", errors.New(msg)
	}
	if r.Solution == nil {
		return "", nil
	}
	return r.Solution.Response, nil
}
