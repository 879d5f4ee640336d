// Package domain defines the error taxonomy shared by the monitoring service.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainError represents a service error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "MON-CFG-5001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two DomainErrors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HTTPStatus maps an error to the HTTP status the API answers with.
// Errors without a code are treated as internal failures.
func HTTPStatus(err error) int {
	code := GetErrorCode(err)
	switch {
	case code == "":
		return http.StatusInternalServerError
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4130"):
		return http.StatusRequestEntityTooLarge
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "MON-ARG-"), strings.HasPrefix(code, "MON-MET-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Configuration errors (CFG). These are fatal at startup.
var (
	// ErrMetricConflict indicates a metric name was registered twice with different shapes.
	ErrMetricConflict = NewDomainError("MON-CFG-5001", "metric already registered with a different shape")

	// ErrInvalidMetric indicates a metric definition was rejected (bad name, labels or buckets).
	ErrInvalidMetric = NewDomainError("MON-CFG-5002", "invalid metric definition")

	// ErrInvalidConfig indicates the service configuration failed validation.
	ErrInvalidConfig = NewDomainError("MON-CFG-5003", "invalid configuration")
)

// Request validation errors (ARG).
var (
	// ErrInvalidBody indicates a missing or malformed JSON request body.
	ErrInvalidBody = NewDomainError("MON-ARG-4001", "invalid request body")

	// ErrBodyTooLarge indicates the request body exceeded the accepted size.
	ErrBodyTooLarge = NewDomainError("MON-ARG-4130", "request body too large")

	// ErrRouteNotFound indicates no route matched the request.
	ErrRouteNotFound = NewDomainError("MON-ARG-4040", "route not found")
)

// Metric usage errors (MET).
var (
	// ErrLabelCardinality indicates the number of label values does not match the label names.
	ErrLabelCardinality = NewDomainError("MON-MET-4001", "label value count does not match label names")
)

// System errors (SYS).
var (
	// ErrInternal indicates an unhandled failure.
	ErrInternal = NewDomainError("MON-SYS-5000", "internal server error")

	// ErrRateLimited indicates too many requests from one client.
	ErrRateLimited = NewDomainError("MON-SYS-4290", "too many requests")

	// ErrShuttingDown indicates the service no longer accepts work.
	ErrShuttingDown = NewDomainError("MON-SYS-5030", "service shutting down")
)
