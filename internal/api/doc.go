// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to trigger a scrape of every configured source.
//   - GET /v1/runs/latest and /v1/runs/{run_id} for run summaries.
//   - GET /v1/sources for the configured and registered boards.
package api
