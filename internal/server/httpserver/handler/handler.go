package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
)

// DefaultServiceName is reported by /health when Config.ServiceName is empty.
const DefaultServiceName = "python-monitoring"

// Config holds the dependencies of a Handler.
type Config struct {
	ServiceName string
	Registry    *metric.Registry
	Metrics     *metric.ServiceMetrics
	Logger      logger.Logger

	QueryDelay   DelayRange
	ConnectDelay DelayRange

	// Sleep performs simulated work. Nil means time.Sleep.
	Sleep func(DelayRange)
}

// Handler serves the service endpoints.
type Handler struct {
	serviceName  string
	registry     *metric.Registry
	metrics      *metric.ServiceMetrics
	logger       logger.Logger
	queryDelay   DelayRange
	connectDelay DelayRange
	sleep        func(DelayRange)
	shuttingDown atomic.Bool
}

// New creates a Handler. Registry and Metrics are required.
func New(cfg Config) *Handler {
	h := &Handler{
		serviceName:  cfg.ServiceName,
		registry:     cfg.Registry,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		queryDelay:   cfg.QueryDelay,
		connectDelay: cfg.ConnectDelay,
		sleep:        cfg.Sleep,
	}
	if h.serviceName == "" {
		h.serviceName = DefaultServiceName
	}
	if h.logger == nil {
		h.logger = logger.Discard()
	}
	if h.sleep == nil {
		h.sleep = SleepRandom
	}
	return h
}

// BeginShutdown makes /ready report 503 from now on.
func (h *Handler) BeginShutdown() {
	h.shuttingDown.Store(true)
}

// ShuttingDown reports whether BeginShutdown has been called.
func (h *Handler) ShuttingDown() bool {
	return h.shuttingDown.Load()
}

// NotFound answers requests that matched no route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, domain.ErrRouteNotFound)
}

// writeJSON writes data as a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError writes err as an ErrorResponse. Errors that are not domain
// errors are logged and reported as internal errors.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		logger.L(r.Context()).Error("internal error", "error", err)
		de = domain.ErrInternal
	}

	message := de.Message
	if de.Details != "" {
		message += ": " + de.Details
	}

	w.Header().Set("X-Error-Code", de.Code)
	h.writeJSON(w, r, domain.HTTPStatus(de), ErrorResponse{
		Code:    de.Code,
		Message: message,
	})
}
