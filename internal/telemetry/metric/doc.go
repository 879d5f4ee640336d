// Package metric provides Prometheus metrics for cropeye-monitor.
//
// This package implements metrics collection and exposition:
//
//   - registry.go: Registry that owns named instruments and renders them
//   - instruments.go: Counter, Histogram and Gauge handles
//   - service.go: the instruments the HTTP service records into
//   - collector.go: build information collector
//
// Instruments are backed by client_golang, so every mutation is atomic
// across goroutines. Registering a name twice with the same shape returns
// the existing handle; a different shape is a configuration error.
//
// Metrics are exposed at /metrics in the Prometheus text format.
package metric
