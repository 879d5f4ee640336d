// Package handler implements the HTTP endpoints of the monitoring service.
//
//   - health.go: liveness and readiness
//   - farming.go: farming query intake
//   - connect.go: simulated long-lived connection
//   - metrics.go: Prometheus scrape endpoint
//   - simulate.go: injectable delays for the simulated work
//
// Handlers are plain http.HandlerFuncs. Routing and request instrumentation
// live in the parent httpserver package, which wraps each one with the name
// it is recorded under.
package handler
