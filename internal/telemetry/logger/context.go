package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "cropeye.logger"
	requestIDKey contextKey = "cropeye.request_id"
	endpointKey  contextKey = "cropeye.endpoint"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEndpoint records the route name a request was matched to, the same
// value that lands in the endpoint metric label.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey, endpoint)
}

// EndpointFromContext returns the route name set by WithEndpoint.
func EndpointFromContext(ctx context.Context) string {
	if ep, ok := ctx.Value(endpointKey).(string); ok {
		return ep
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger with the
// request ID and endpoint from the context, so handler logs line up with
// the request metrics.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if ep := EndpointFromContext(ctx); ep != "" {
		l = l.With("endpoint", ep)
	}
	return l
}
