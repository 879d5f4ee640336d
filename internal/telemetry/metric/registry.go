// Package metric provides Prometheus metrics for cropeye-monitor.
package metric

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
)

// Kind identifies the type of an instrument.
type Kind string

const (
	KindCounter   Kind = "counter"
	KindHistogram Kind = "histogram"
	KindGauge     Kind = "gauge"
)

// bucketLabel is reserved by the exposition format for histogram buckets.
const bucketLabel = "le"

// shape is everything that must match for a repeated registration to be accepted.
type shape struct {
	kind    Kind
	help    string
	labels  []string
	buckets []float64
}

func (s shape) equal(o shape) bool {
	return s.kind == o.kind &&
		s.help == o.help &&
		slices.Equal(s.labels, o.labels) &&
		slices.Equal(s.buckets, o.buckets)
}

func (s shape) String() string {
	str := fmt.Sprintf("%s{%s}", s.kind, strings.Join(s.labels, ","))
	if s.kind == KindHistogram {
		str += fmt.Sprintf(" buckets=%v", s.buckets)
	}
	return str
}

type entry struct {
	shape  shape
	handle any
}

// Registry holds all application instruments.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	entries  map[string]*entry
}

// NewRegistry creates an empty registry. Each call returns an isolated
// registry; nothing is registered with the process-wide default.
func NewRegistry() *Registry {
	return &Registry{
		registry: prometheus.NewRegistry(),
		entries:  make(map[string]*entry),
	}
}

// RegisterCounter registers a counter partitioned by labelNames.
func (r *Registry) RegisterCounter(name, help string, labelNames []string) (*Counter, error) {
	sh := shape{kind: KindCounter, help: help, labels: slices.Clone(labelNames)}
	h, err := r.register(name, sh, func() (prometheus.Collector, any) {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, sh.labels)
		return vec, newCounter(name, vec, sh.labels)
	})
	if err != nil {
		return nil, err
	}
	return h.(*Counter), nil
}

// RegisterHistogram registers a histogram partitioned by labelNames.
// Empty buckets selects prometheus.DefBuckets.
func (r *Registry) RegisterHistogram(name, help string, labelNames []string, buckets []float64) (*Histogram, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	if err := validateBuckets(buckets); err != nil {
		return nil, domain.ErrInvalidMetric.WithDetails(name + ": " + err.Error())
	}
	if slices.Contains(labelNames, bucketLabel) {
		return nil, domain.ErrInvalidMetric.WithDetails(name + ": label \"le\" is reserved for histograms")
	}

	sh := shape{kind: KindHistogram, help: help, labels: slices.Clone(labelNames), buckets: slices.Clone(buckets)}
	h, err := r.register(name, sh, func() (prometheus.Collector, any) {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: sh.buckets}, sh.labels)
		return vec, newHistogram(name, vec, sh.labels)
	})
	if err != nil {
		return nil, err
	}
	return h.(*Histogram), nil
}

// RegisterGauge registers an unlabeled gauge.
func (r *Registry) RegisterGauge(name, help string) (*Gauge, error) {
	sh := shape{kind: KindGauge, help: help}
	h, err := r.register(name, sh, func() (prometheus.Collector, any) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		return g, &Gauge{name: name, gauge: g}
	})
	if err != nil {
		return nil, err
	}
	return h.(*Gauge), nil
}

// RegisterCollector registers an arbitrary collector alongside the instruments.
func (r *Registry) RegisterCollector(c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return translateRegisterError("collector", r.registry.Register(c))
}

// RegisterRuntime registers the Go runtime and process collectors.
func (r *Registry) RegisterRuntime() error {
	if err := r.RegisterCollector(collectors.NewGoCollector()); err != nil {
		return err
	}
	return r.RegisterCollector(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func (r *Registry) register(name string, sh shape, build func() (prometheus.Collector, any)) (any, error) {
	if err := validateLabels(sh.labels); err != nil {
		return nil, domain.ErrInvalidMetric.WithDetails(name + ": " + err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		if e.shape.equal(sh) {
			return e.handle, nil
		}
		return nil, domain.ErrMetricConflict.WithDetails(
			fmt.Sprintf("%s: registered as %s, requested %s", name, e.shape, sh))
	}

	collector, handle := build()
	if err := r.registry.Register(collector); err != nil {
		return nil, translateRegisterError(name, err)
	}
	if unlabeled, ok := handle.(interface{ materialize() }); ok && len(sh.labels) == 0 {
		unlabeled.materialize()
	}

	r.entries[name] = &entry{shape: sh, handle: handle}
	return handle, nil
}

// Render produces the text exposition of every instrument. Families are
// sorted by name and series by label values, so output is deterministic.
func (r *Registry) Render() (string, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return b.String(), nil
}

// Gatherer exposes the underlying gatherer for scrape handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns a negotiating scrape handler over the registry. It serves
// OpenMetrics to clients that ask for it and the text format otherwise.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Names returns the registered instrument names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func translateRegisterError(name string, err error) error {
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return domain.ErrMetricConflict.WithDetails(name).WithCause(err)
	}
	return domain.ErrInvalidMetric.WithDetails(name).WithCause(err)
}

func validateLabels(labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			return errors.New("empty label name")
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("duplicate label name %q", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

func validateBuckets(buckets []float64) error {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return fmt.Errorf("buckets must be strictly increasing, got %v after %v", buckets[i], buckets[i-1])
		}
	}
	return nil
}
