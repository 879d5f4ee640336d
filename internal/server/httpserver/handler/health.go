package handler

import "net/http"

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  StatusHealthy,
		Service: h.serviceName,
	})
}

// Ready handles GET /ready. It reports 503 once shutdown has begun so load
// balancers stop sending traffic while in-flight requests drain.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ShuttingDown() {
		h.writeJSON(w, r, http.StatusServiceUnavailable, StatusResponse{Status: StatusShuttingDown})
		return
	}
	h.writeJSON(w, r, http.StatusOK, StatusResponse{Status: StatusReady})
}
