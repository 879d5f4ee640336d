package httpserver

import (
	"net/http"

	"github.com/yndnr/cropeye-monitor/internal/server/httpserver/handler"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
)

// Endpoint names recorded in the endpoint label.
const (
	EndpointMetrics      = "metrics"
	EndpointHealth       = "health"
	EndpointReady        = "ready"
	EndpointFarmingQuery = "farming_query"
	EndpointConnect      = "connect"
	EndpointUnknown      = metric.UnknownEndpoint
)

// DefaultMetricsPath is used when RouterConfig.MetricsPath is empty.
const DefaultMetricsPath = "/metrics"

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler *handler.Handler
	Metrics *metric.ServiceMetrics
	Logger  logger.Logger

	// MetricsPath is where the scrape endpoint is served.
	MetricsPath string

	// CORSAllowedOrigins enables CORS for the listed origins ("*" for any).
	// Empty disables CORS handling.
	CORSAllowedOrigins []string

	// RateLimit is the per-client-IP limit in requests/second; 0 disables it.
	RateLimit int

	// AccessLog enables one log line per request.
	AccessLog bool
}

// Route is one registered endpoint.
type Route struct {
	Pattern string
	Name    string
	Handler http.HandlerFunc
}

// Routes returns the service routes in registration order.
func Routes(h *handler.Handler, metricsPath string) []Route {
	if metricsPath == "" {
		metricsPath = DefaultMetricsPath
	}
	return []Route{
		{"GET " + metricsPath, EndpointMetrics, h.Metrics},
		{"GET /health", EndpointHealth, h.Health},
		{"GET /ready", EndpointReady, h.Ready},
		{"POST /api/farming-query", EndpointFarmingQuery, h.FarmingQuery},
		{"GET /api/connect", EndpointConnect, h.Connect},
		{"/", EndpointUnknown, h.NotFound},
	}
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	var routeMiddleware []Middleware
	if cfg.RateLimit > 0 {
		routeMiddleware = append(routeMiddleware, NewRateLimiter(cfg.RateLimit).Middleware())
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		routeMiddleware = append(routeMiddleware, CORS(cfg.CORSAllowedOrigins))
	}
	routeMiddleware = append(routeMiddleware, Recover())

	mux := http.NewServeMux()
	for _, rt := range Routes(cfg.Handler, cfg.MetricsPath) {
		chain := append([]Middleware{Instrument(cfg.Metrics, rt.Name)}, routeMiddleware...)
		mux.Handle(rt.Pattern, Chain(rt.Handler, chain...))
	}

	outer := []Middleware{RequestID(cfg.Logger)}
	if cfg.AccessLog {
		outer = append(outer, AccessLog())
	}
	return Chain(mux, outer...)
}
