package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
)

// MaxQueryBodyBytes bounds the farming query request body.
const MaxQueryBodyBytes = 1 << 20

// DefaultQueryType is recorded when a query names no type.
const DefaultQueryType = "general"

// FarmingQuery handles POST /api/farming-query.
func (h *Handler) FarmingQuery(w http.ResponseWriter, r *http.Request) {
	queryType, err := decodeQueryType(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.metrics.RecordQuery(queryType); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sleep(h.queryDelay)

	logger.L(r.Context()).Debug("farming query processed", "type", queryType)
	h.writeJSON(w, r, http.StatusOK, FarmingQueryResponse{
		Status:  StatusSuccess,
		Message: "Query processed",
		Type:    queryType,
	})
}

// decodeQueryType reads the body as a single JSON object and returns its
// "type". A missing, null or empty type yields DefaultQueryType.
func decodeQueryType(w http.ResponseWriter, r *http.Request) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxQueryBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", domain.ErrBodyTooLarge.WithCause(err)
		}
		return "", domain.ErrInvalidBody.WithDetails("unreadable body").WithCause(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", domain.ErrInvalidBody.WithDetails("body is empty")
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&fields); err != nil {
		return "", domain.ErrInvalidBody.WithDetails("malformed JSON").WithCause(err)
	}
	if fields == nil {
		return "", domain.ErrInvalidBody.WithDetails("body must be a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", domain.ErrInvalidBody.WithDetails("unexpected data after JSON object")
	}

	raw, ok := fields["type"]
	if !ok || string(raw) == "null" {
		return DefaultQueryType, nil
	}
	var queryType string
	if err := json.Unmarshal(raw, &queryType); err != nil {
		return "", domain.ErrInvalidBody.WithDetails("type must be a string").WithCause(err)
	}
	if queryType == "" {
		return DefaultQueryType, nil
	}
	return queryType, nil
}
