// Package api hosts the preview HTTP server. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to rebuild the report in the background.
//   - GET /v1/runs/latest for the state of the most recent rebuild.
//   - GET /* serves the generated docs directory.
package api
