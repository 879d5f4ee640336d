package handler

import "net/http"

// Connect handles GET /api/connect. The active connection gauge is held
// up for the duration of the simulated work and released on every exit path.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	release := h.metrics.TrackConnection()
	defer release()

	h.sleep(h.connectDelay)

	h.writeJSON(w, r, http.StatusOK, StatusResponse{Status: StatusConnected})
}
