package handler

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// StatusResponse is a body carrying only a status word.
type StatusResponse struct {
	Status string `json:"status"`
}

// FarmingQueryRequest is the body of POST /api/farming-query.
type FarmingQueryRequest struct {
	Type string `json:"type"`
}

// FarmingQueryResponse is the body of a successful farming query.
type FarmingQueryResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Status words.
const (
	StatusHealthy      = "healthy"
	StatusReady        = "ready"
	StatusShuttingDown = "shutting_down"
	StatusSuccess      = "success"
	StatusConnected    = "connected"
)
