package handler

import (
	"io"
	"net/http"
	"strings"
)

// TextContentType is the media type of the Prometheus text exposition format.
const TextContentType = "text/plain; version=0.0.4; charset=utf-8"

const openMetricsType = "application/openmetrics-text"

// Metrics handles GET /metrics. Scrapers that negotiate OpenMetrics are
// served by the registry's scrape handler; everyone else gets Render output.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), openMetricsType) {
		h.registry.Handler().ServeHTTP(w, r)
		return
	}

	out, err := h.registry.Render()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", TextContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}
