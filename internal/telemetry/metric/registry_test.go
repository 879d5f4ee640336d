package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}

	out, err := r.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "" {
		t.Errorf("Render() on empty registry = %q, want empty", out)
	}
}

func TestNewRegistry_Isolated(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	c1, err := r1.RegisterCounter("isolated_total", "help", nil)
	if err != nil {
		t.Fatalf("RegisterCounter() error = %v", err)
	}
	if _, err := r2.RegisterCounter("isolated_total", "other help", []string{"x"}); err != nil {
		t.Fatalf("second registry should accept a different shape, got %v", err)
	}

	_ = c1.Inc()
	out, _ := r2.Render()
	if strings.Contains(out, "isolated_total 1") {
		t.Error("increment leaked across registries")
	}
}

func TestRegisterCounter_SameShapeReturnsExisting(t *testing.T) {
	r := NewRegistry()

	c1, err := r.RegisterCounter("queries_total", "Total queries", []string{"query_type"})
	if err != nil {
		t.Fatalf("RegisterCounter() error = %v", err)
	}
	c2, err := r.RegisterCounter("queries_total", "Total queries", []string{"query_type"})
	if err != nil {
		t.Fatalf("RegisterCounter() repeat error = %v", err)
	}
	if c1 != c2 {
		t.Error("repeat registration should return the same handle")
	}
}

func TestRegister_Conflicts(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *Registry) error
	}{
		{
			name: "different labels",
			register: func(r *Registry) error {
				_, err := r.RegisterCounter("shape_total", "help", []string{"b"})
				return err
			},
		},
		{
			name: "different help",
			register: func(r *Registry) error {
				_, err := r.RegisterCounter("shape_total", "other", []string{"a"})
				return err
			},
		},
		{
			name: "gauge over counter",
			register: func(r *Registry) error {
				_, err := r.RegisterGauge("shape_total", "help")
				return err
			},
		},
		{
			name: "histogram over counter",
			register: func(r *Registry) error {
				_, err := r.RegisterHistogram("shape_total", "help", []string{"a"}, nil)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if _, err := r.RegisterCounter("shape_total", "help", []string{"a"}); err != nil {
				t.Fatalf("RegisterCounter() error = %v", err)
			}

			err := tt.register(r)
			if !errors.Is(err, domain.ErrMetricConflict) {
				t.Errorf("error = %v, want ErrMetricConflict", err)
			}
		})
	}
}

func TestRegisterHistogram_BucketsArePartOfShape(t *testing.T) {
	r := NewRegistry()
	if _, err := r.RegisterHistogram("latency_seconds", "help", nil, []float64{0.1, 1}); err != nil {
		t.Fatalf("RegisterHistogram() error = %v", err)
	}

	if _, err := r.RegisterHistogram("latency_seconds", "help", nil, []float64{0.1, 1}); err != nil {
		t.Errorf("same buckets should be accepted, got %v", err)
	}

	_, err := r.RegisterHistogram("latency_seconds", "help", nil, []float64{0.5, 1})
	if !errors.Is(err, domain.ErrMetricConflict) {
		t.Errorf("error = %v, want ErrMetricConflict", err)
	}
}

func TestRegister_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *Registry) error
	}{
		{
			name: "empty name",
			register: func(r *Registry) error {
				_, err := r.RegisterCounter("", "help", nil)
				return err
			},
		},
		{
			name: "duplicate label",
			register: func(r *Registry) error {
				_, err := r.RegisterCounter("dup_total", "help", []string{"a", "a"})
				return err
			},
		},
		{
			name: "empty label",
			register: func(r *Registry) error {
				_, err := r.RegisterCounter("empty_label_total", "help", []string{""})
				return err
			},
		},
		{
			name: "unsorted buckets",
			register: func(r *Registry) error {
				_, err := r.RegisterHistogram("bad_seconds", "help", nil, []float64{1, 0.5})
				return err
			},
		},
		{
			name: "repeated bucket",
			register: func(r *Registry) error {
				_, err := r.RegisterHistogram("bad_seconds", "help", nil, []float64{1, 1})
				return err
			},
		},
		{
			name: "reserved le label",
			register: func(r *Registry) error {
				_, err := r.RegisterHistogram("bad_seconds", "help", []string{"le"}, nil)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.register(NewRegistry())
			if !errors.Is(err, domain.ErrInvalidMetric) {
				t.Errorf("error = %v, want ErrInvalidMetric", err)
			}
		})
	}
}

func TestRegisterCollector_Twice(t *testing.T) {
	r := NewRegistry()
	c := NewBuildInfoCollector("test", testBuildInfo, testStartTime)

	if err := r.RegisterCollector(c); err != nil {
		t.Fatalf("RegisterCollector() error = %v", err)
	}
	if err := r.RegisterCollector(c); !errors.Is(err, domain.ErrMetricConflict) {
		t.Errorf("error = %v, want ErrMetricConflict", err)
	}
}

func TestRegisterRuntime(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterRuntime(); err != nil {
		t.Fatalf("RegisterRuntime() error = %v", err)
	}

	out, err := r.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
}

func TestRender_Exact(t *testing.T) {
	r := NewRegistry()
	queries, err := r.RegisterCounter("farming_queries_total", "Total farming-related queries", []string{"query_type"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.RegisterGauge("python_active_connections", "Number of active connections"); err != nil {
		t.Fatal(err)
	}

	_ = queries.Inc("pest_control")
	_ = queries.Inc("general")
	_ = queries.Inc("pest_control")

	want := `# HELP farming_queries_total Total farming-related queries
# TYPE farming_queries_total counter
farming_queries_total{query_type="general"} 1
farming_queries_total{query_type="pest_control"} 2
# HELP python_active_connections Number of active connections
# TYPE python_active_connections gauge
python_active_connections 0
`
	got, err := r.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRender_Histogram(t *testing.T) {
	r := NewRegistry()
	h, err := r.RegisterHistogram("req_seconds", "Request duration", []string{"method"}, []float64{0.1, 0.5, 1})
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Observe(0.25, "GET")
	_ = h.Observe(0.5, "GET")

	want := `# HELP req_seconds Request duration
# TYPE req_seconds histogram
req_seconds_bucket{method="GET",le="0.1"} 0
req_seconds_bucket{method="GET",le="0.5"} 2
req_seconds_bucket{method="GET",le="1"} 2
req_seconds_bucket{method="GET",le="+Inf"} 2
req_seconds_sum{method="GET"} 0.75
req_seconds_count{method="GET"} 2
`
	if err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(want), "req_seconds"); err != nil {
		t.Error(err)
	}
}

func TestRender_Idempotent(t *testing.T) {
	r := NewRegistry()
	c, _ := r.RegisterCounter("a_total", "a", []string{"k"})
	h, _ := r.RegisterHistogram("b_seconds", "b", []string{"k"}, nil)
	g, _ := r.RegisterGauge("c", "c")
	if err := r.RegisterCollector(NewBuildInfoCollector("test", testBuildInfo, testStartTime)); err != nil {
		t.Fatal(err)
	}

	_ = c.Inc("x")
	_ = h.Observe(0.3, "y")
	g.Set(7)

	first, err := r.Render()
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Render()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Render() not idempotent:\n%s\n---\n%s", first, second)
	}
}

func TestRender_OneLinePerLabelTuple(t *testing.T) {
	r := NewRegistry()
	c, _ := r.RegisterCounter("tuple_total", "help", []string{"a", "b"})

	tuples := [][]string{{"1", "x"}, {"1", "y"}, {"2", "x"}, {"1", "x"}}
	for _, tv := range tuples {
		if err := c.Inc(tv...); err != nil {
			t.Fatal(err)
		}
	}

	out, _ := r.Render()
	series := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "tuple_total{") {
			series++
		}
	}
	if series != 3 {
		t.Errorf("series lines = %d, want 3\n%s", series, out)
	}
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	_, _ = r.RegisterGauge("zeta", "z")
	_, _ = r.RegisterCounter("alpha_total", "a", nil)

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha_total" || names[1] != "zeta" {
		t.Errorf("Names() = %v", names)
	}
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	handles := make([]*Counter, 20)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.RegisterCounter("race_total", "help", []string{"k"})
			if err != nil {
				t.Errorf("RegisterCounter() error = %v", err)
				return
			}
			handles[i] = c
		}(i)
	}
	wg.Wait()

	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("handle %d differs from handle 0", i)
		}
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	c, _ := r.RegisterCounter("scrapes_total", "Scrapes.", []string{"job"})
	_ = c.Inc("probe")

	tests := []struct {
		name        string
		accept      string
		contentType string
	}{
		{"text", "", "text/plain"},
		{"openmetrics", "application/openmetrics-text; version=1.0.0", "application/openmetrics-text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want prefix %q", ct, tt.contentType)
			}
			body, _ := io.ReadAll(rec.Body)
			if !strings.Contains(string(body), `scrapes_total{job="probe"} 1`) {
				t.Errorf("body missing series:\n%s", body)
			}
		})
	}
}
