package metric

import (
	"errors"
	"strconv"
	"time"
)

// Metric names recorded by the HTTP service. They keep the names used by
// the earlier Python exporter so existing dashboards keep working.
const (
	RequestsTotalName     = "python_requests_total"
	RequestDurationName   = "python_request_duration_seconds"
	ActiveConnectionsName = "python_active_connections"
	FarmingQueriesName    = "farming_queries_total"
)

// UnknownEndpoint labels requests that matched no route.
const UnknownEndpoint = "unknown"

// ServiceMetrics holds the instruments the HTTP service records into.
type ServiceMetrics struct {
	Requests          *Counter
	RequestDuration   *Histogram
	ActiveConnections *Gauge
	FarmingQueries    *Counter
}

// NewServiceMetrics registers the service instruments with r.
// durationBuckets may be empty to use the client defaults.
func NewServiceMetrics(r *Registry, durationBuckets []float64) (*ServiceMetrics, error) {
	requests, err := r.RegisterCounter(RequestsTotalName,
		"Total number of requests",
		[]string{"method", "endpoint", "status"})
	if err != nil {
		return nil, err
	}

	duration, err := r.RegisterHistogram(RequestDurationName,
		"Request duration in seconds",
		[]string{"method", "endpoint"},
		durationBuckets)
	if err != nil {
		return nil, err
	}

	active, err := r.RegisterGauge(ActiveConnectionsName,
		"Number of active connections")
	if err != nil {
		return nil, err
	}

	queries, err := r.RegisterCounter(FarmingQueriesName,
		"Total farming-related queries",
		[]string{"query_type"})
	if err != nil {
		return nil, err
	}

	return &ServiceMetrics{
		Requests:          requests,
		RequestDuration:   duration,
		ActiveConnections: active,
		FarmingQueries:    queries,
	}, nil
}

// RecordRequest counts a completed request and observes its duration.
// An empty endpoint is recorded as UnknownEndpoint.
func (m *ServiceMetrics) RecordRequest(method, endpoint string, status int, elapsed time.Duration) error {
	if endpoint == "" {
		endpoint = UnknownEndpoint
	}
	return errors.Join(
		m.Requests.Inc(method, endpoint, strconv.Itoa(status)),
		m.RequestDuration.Observe(elapsed.Seconds(), method, endpoint),
	)
}

// RecordQuery counts one farming query of the given type.
func (m *ServiceMetrics) RecordQuery(queryType string) error {
	return m.FarmingQueries.Inc(queryType)
}

// TrackConnection increments the active connection gauge and returns the
// function that decrements it. Callers defer the returned function.
func (m *ServiceMetrics) TrackConnection() (release func()) {
	m.ActiveConnections.Inc()
	return m.ActiveConnections.Dec
}
