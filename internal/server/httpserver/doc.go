// Package httpserver provides the HTTP server of the monitoring service.
//
// Routes:
//
//   - GET /metrics (path configurable): Prometheus scrape endpoint
//   - GET /health, GET /ready: liveness and readiness
//   - POST /api/farming-query: farming query intake
//   - GET /api/connect: simulated long-lived connection
//
// Every route is wrapped with Instrument under a fixed endpoint name, so
// python_requests_total and python_request_duration_seconds carry route
// names rather than raw paths. Requests that match no route are recorded
// as "unknown" and answered with 404.
//
// Middleware order, outermost first: RequestID, AccessLog, Instrument,
// RateLimit, CORS, Recover.
package httpserver
