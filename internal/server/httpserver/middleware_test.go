package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T) (logger.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	l, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: buf})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l, buf
}

func newTestMetrics(t *testing.T) *metric.ServiceMetrics {
	t.Helper()
	sm, err := metric.NewServiceMetrics(metric.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewServiceMetrics() error = %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(HeaderRequestID)
		if !strings.HasPrefix(id, "req-") || len(id) != len("req-")+26 {
			t.Errorf("X-Request-ID = %q, want req-<ulid>", id)
		}
		if seen != id {
			t.Errorf("context request id = %q, want %q", seen, id)
		}
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "upstream-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID); got != "upstream-123" {
			t.Errorf("X-Request-ID = %q, want upstream-123", got)
		}
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "has space")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID); !strings.HasPrefix(got, "req-") {
			t.Errorf("X-Request-ID = %q, want generated id", got)
		}
	})

	t.Run("unique ids", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 100; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			ids[rec.Header().Get(HeaderRequestID)] = true
		}
		if len(ids) != 100 {
			t.Errorf("got %d unique ids, want 100", len(ids))
		}
	})
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"), mw("third"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := "first,second,third,handler"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestInstrument(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  string
	}{
		{"implicit ok", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }, "200"},
		{"explicit status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadRequest) }, "400"},
		{"no write", func(http.ResponseWriter, *http.Request) {}, "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestMetrics(t)
			h := Instrument(sm, EndpointHealth)(tt.handler)

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

			if v, _ := sm.Requests.Value("GET", EndpointHealth, tt.status); v != 1 {
				t.Errorf("requests_total{GET,health,%s} = %v, want 1", tt.status, v)
			}
			snap, _ := sm.RequestDuration.Snapshot("GET", EndpointHealth)
			if snap.Count != 1 {
				t.Errorf("duration count = %d, want 1", snap.Count)
			}
		})
	}
}

func TestInstrument_SetsEndpointInContext(t *testing.T) {
	var seen string
	h := Instrument(newTestMetrics(t), EndpointFarmingQuery)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.EndpointFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/farming-query", nil))

	if seen != EndpointFarmingQuery {
		t.Errorf("endpoint in context = %q, want %q", seen, EndpointFarmingQuery)
	}
}

func TestInstrument_RecordsElapsed(t *testing.T) {
	sm := newTestMetrics(t)
	h := Instrument(sm, EndpointConnect)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/connect", nil))

	snap, _ := sm.RequestDuration.Snapshot("GET", EndpointConnect)
	if snap.Sum < 0.02 {
		t.Errorf("duration sum = %v, want >= 0.02", snap.Sum)
	}
}

func TestInstrument_ConcurrentRequestsAreIndependent(t *testing.T) {
	sm := newTestMetrics(t)
	release := make(chan struct{})
	slow := Instrument(sm, EndpointConnect)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	fast := Instrument(sm, EndpointHealth)(okHandler())

	done := make(chan struct{})
	go func() {
		slow.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/connect", nil))
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	fast.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	close(release)
	<-done

	fastSnap, _ := sm.RequestDuration.Snapshot("GET", EndpointHealth)
	slowSnap, _ := sm.RequestDuration.Snapshot("GET", EndpointConnect)
	if fastSnap.Sum >= 0.05 {
		t.Errorf("fast request duration = %v, should not include the slow request's time", fastSnap.Sum)
	}
	if slowSnap.Sum < 0.05 {
		t.Errorf("slow request duration = %v, want >= 0.05", slowSnap.Sum)
	}
}

func TestInstrument_PanicRecordedAs500(t *testing.T) {
	sm := newTestMetrics(t)
	h := Instrument(sm, EndpointFarmingQuery)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() {
			if p := recover(); p != "boom" {
				t.Errorf("recovered %v, want re-raised boom", p)
			}
		}()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/farming-query", nil))
	}()

	if v, _ := sm.Requests.Value("POST", EndpointFarmingQuery, "500"); v != 1 {
		t.Errorf("requests_total{POST,farming_query,500} = %v, want 1", v)
	}
}

func TestInstrument_UnknownMethodBounded(t *testing.T) {
	sm := newTestMetrics(t)
	h := Instrument(sm, EndpointUnknown)(okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("BREW", "/pot", nil))

	if v, _ := sm.Requests.Value("OTHER", EndpointUnknown, "200"); v != 1 {
		t.Errorf("requests_total{OTHER,unknown,200} = %v, want 1", v)
	}
}

func TestRecover(t *testing.T) {
	log, buf := newTestLogger(t)

	t.Run("recovers from panic", func(t *testing.T) {
		h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		}), RequestID(log), Recover())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["code"] != "MON-SYS-5000" {
			t.Errorf("code = %q, want MON-SYS-5000", body["code"])
		}
		if !strings.Contains(buf.String(), "panic recovered") {
			t.Errorf("panic not logged: %s", buf.String())
		}
	})

	t.Run("keeps status already written", func(t *testing.T) {
		h := Recover()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			panic("late panic")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		if rec.Code != http.StatusAccepted {
			t.Errorf("status = %d, want 202", rec.Code)
		}
	})

	t.Run("re-panics abort", func(t *testing.T) {
		h := Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		defer func() {
			if p := recover(); p != http.ErrAbortHandler {
				t.Errorf("recovered %v, want ErrAbortHandler", p)
			}
		}()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recover()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestInstrumentWithRecover(t *testing.T) {
	sm := newTestMetrics(t)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Instrument(sm, EndpointConnect), Recover())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/connect", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if v, _ := sm.Requests.Value("GET", EndpointConnect, "500"); v != 1 {
		t.Errorf("requests_total{GET,connect,500} = %v, want 1", v)
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			log, buf := newTestLogger(t)
			h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}), RequestID(log), AccessLog())

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

			var entry map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if id, _ := entry["request_id"].(string); !strings.HasPrefix(id, "req-") {
				t.Errorf("request_id = %v, want req-*", entry["request_id"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Run("adds headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://dashboard.example")
		rec := httptest.NewRecorder()
		CORS([]string{"https://dashboard.example"})(okHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("omits headers for other origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		CORS([]string{"https://dashboard.example"})(okHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("answers preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/farming-query", nil)
		req.Header.Set("Origin", "https://dashboard.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(okHandler()).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("limits requests from same IP", func(t *testing.T) {
		h := RateLimit(2)(okHandler())

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = "10.0.0.99:12345"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("request %d: status = %d, want 200", i+1, rec.Code)
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.99:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want 429", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "1" {
			t.Error("Retry-After header missing")
		}
		if rec.Header().Get("X-Error-Code") != "MON-SYS-4290" {
			t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
		}
	})

	t.Run("different IPs have separate limits", func(t *testing.T) {
		h := RateLimit(1)(okHandler())
		for _, ip := range []string{"192.168.100.1:1", "192.168.100.2:1"} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = ip
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: status = %d, want 200", ip, rec.Code)
			}
		}
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		l := NewRateLimiter(10)
		now := time.Unix(1700000000, 0)
		l.now = func() time.Time { return now }

		for i := 0; i < 10; i++ {
			l.Allow("10.0.0.88")
		}
		if l.Allow("10.0.0.88") {
			t.Fatal("11th request should be limited")
		}

		now = now.Add(200 * time.Millisecond)
		if !l.Allow("10.0.0.88") {
			t.Error("request after refill should be allowed")
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		h := RateLimit(100)(okHandler())

		var wg sync.WaitGroup
		var mu sync.Mutex
		codes := map[int]int{}
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				req.RemoteAddr = "192.168.1.1:12345"
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				mu.Lock()
				codes[rec.Code]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		if codes[http.StatusOK] == 0 || codes[http.StatusTooManyRequests] == 0 {
			t.Errorf("codes = %v, want both 200 and 429", codes)
		}
	})
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	l := NewRateLimiter(5)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")
	now = now.Add(clientIdleTimeout + time.Second)
	l.Allow("10.0.0.2")

	if removed := l.evictIdle(now); removed != 1 {
		t.Errorf("evictIdle() removed %d, want 1", removed)
	}
	if l.clients.Count() != 1 {
		t.Errorf("tracked clients = %d, want 1", l.clients.Count())
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "192.168.1.1:12345", "10.0.0.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "10.0.0.1"}, "192.168.1.1:12345", "10.0.0.1"},
		{"remote addr", nil, "192.168.1.1:12345", "192.168.1.1"},
		{"ipv6 remote addr", nil, "[::1]:8080", "::1"},
		{"bare remote addr", nil, "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)

	if sr.Status() != http.StatusOK {
		t.Errorf("default status = %d, want 200", sr.Status())
	}

	sr.WriteHeader(http.StatusCreated)
	sr.WriteHeader(http.StatusInternalServerError)
	_, _ = sr.Write([]byte("hello"))

	if sr.Status() != http.StatusCreated {
		t.Errorf("status = %d, want first written 201", sr.Status())
	}
	if sr.bytes != 5 {
		t.Errorf("bytes = %d, want 5", sr.bytes)
	}
	if newStatusRecorder(sr) != sr {
		t.Error("wrapping a statusRecorder should reuse it")
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap() should return the underlying writer")
	}
}
