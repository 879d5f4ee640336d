package httpserver

import (
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
	"github.com/yndnr/cropeye-monitor/pkg/cmap"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID assigns each request an ID, reusing a well-formed incoming
// X-Request-ID. The ID is echoed in the response and stored in the request
// context together with a logger carrying it.
func RequestID(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if !validRequestID(requestID) {
				requestID = "req-" + ulid.Make().String()
			}

			w.Header().Set(HeaderRequestID, requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			if log != nil {
				ctx = logger.WithLogger(ctx, log)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

// Instrument records python_requests_total and
// python_request_duration_seconds for every request under endpoint.
// The start time is local to each call. Recording happens in a deferred
// function, so a panic that reaches this middleware is counted as a 500
// before it propagates.
func Instrument(m *metric.ServiceMetrics, endpoint string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			defer func() {
				status := rec.Status()
				p := recover()
				if p != nil {
					status = http.StatusInternalServerError
				}
				if err := m.RecordRequest(methodLabel(r.Method), endpoint, status, time.Since(start)); err != nil {
					logger.L(r.Context()).Error("failed to record request metrics", "error", err)
				}
				if p != nil {
					panic(p)
				}
			}()

			r = r.WithContext(logger.WithEndpoint(r.Context(), endpoint))
			next.ServeHTTP(rec, r)
		})
	}
}

// methodLabel bounds the method label to the standard methods.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodConnect,
		http.MethodOptions, http.MethodTrace:
		return method
	default:
		return "OTHER"
	}
}

// Recover turns a handler panic into a 500 JSON error and logs it with the
// stack. http.ErrAbortHandler is re-panicked so net/http can abort the
// connection.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				logger.L(r.Context()).Error("panic recovered",
					"error", p,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				if !rec.wroteHeader {
					writeError(rec, domain.ErrInternal)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// AccessLog logs one line per request. The level follows the status:
// Error for 5xx, Warn for 4xx, Info otherwise.
func AccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			log := logger.L(r.Context())
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.Status(),
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			switch status := rec.Status(); {
			case status >= 500:
				log.Error("request completed with error", attrs...)
			case status >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers for allowed origins and
// answers preflight requests. An empty list allows every origin.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := len(allowedOrigins) == 0
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Limits on the per-client limiter table.
const (
	maxTrackedClients = 4096
	clientIdleTimeout = 3 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cmap.Map[string, *clientLimiter]
	now     func() time.Time
}

// NewRateLimiter allows requestsPerSecond per client IP with an equal burst.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(requestsPerSecond),
		burst:   requestsPerSecond,
		clients: cmap.New[string, *clientLimiter](),
		now:     time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *RateLimiter) Allow(ip string) bool {
	now := l.now()
	c := l.clients.GetOrCreate(ip, func() *clientLimiter {
		return &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
	})
	c.lastSeen.Store(now.UnixNano())

	if l.clients.Count() > maxTrackedClients {
		l.evictIdle(now)
	}
	return c.limiter.AllowN(now, 1)
}

// evictIdle forgets clients not seen within clientIdleTimeout.
func (l *RateLimiter) evictIdle(now time.Time) int {
	cutoff := now.Add(-clientIdleTimeout).UnixNano()
	return l.clients.DeleteFunc(func(_ string, c *clientLimiter) bool {
		return c.lastSeen.Load() < cutoff
	})
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(getClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit is a shorthand for NewRateLimiter(requestsPerSecond).Middleware().
func RateLimit(requestsPerSecond int) Middleware {
	return NewRateLimiter(requestsPerSecond).Middleware()
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
