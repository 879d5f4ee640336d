package metric

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
)

// Counter is a cumulative metric partitioned by labels. It only increases.
type Counter struct {
	name   string
	vec    *prometheus.CounterVec
	labels []string
}

func newCounter(name string, vec *prometheus.CounterVec, labels []string) *Counter {
	return &Counter{name: name, vec: vec, labels: labels}
}

func (c *Counter) materialize() { c.vec.WithLabelValues() }

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Vec exposes the underlying collector, e.g. for prometheus/testutil.
func (c *Counter) Vec() *prometheus.CounterVec { return c.vec }

// Inc adds one to the series identified by labelValues, creating it at zero
// first if it does not exist yet.
func (c *Counter) Inc(labelValues ...string) error {
	if err := checkCardinality(c.name, c.labels, labelValues); err != nil {
		return err
	}
	counter, err := c.vec.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return domain.ErrLabelCardinality.WithDetails(c.name).WithCause(err)
	}
	counter.Inc()
	return nil
}

// Value returns the current value of a series. A series that was never
// incremented reports zero and is not created.
func (c *Counter) Value(labelValues ...string) (float64, error) {
	if err := checkCardinality(c.name, c.labels, labelValues); err != nil {
		return 0, err
	}
	m, ok, err := findSeries(c.vec, c.labels, labelValues)
	if err != nil || !ok {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}

// Histogram samples observations into cumulative buckets, partitioned by labels.
type Histogram struct {
	name   string
	vec    *prometheus.HistogramVec
	labels []string
}

func newHistogram(name string, vec *prometheus.HistogramVec, labels []string) *Histogram {
	return &Histogram{name: name, vec: vec, labels: labels}
}

func (h *Histogram) materialize() { h.vec.WithLabelValues() }

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Vec exposes the underlying collector.
func (h *Histogram) Vec() *prometheus.HistogramVec { return h.vec }

// Observe records value in the series identified by labelValues. Sum and
// count grow, and every bucket whose upper bound is >= value is incremented.
func (h *Histogram) Observe(value float64, labelValues ...string) error {
	if err := checkCardinality(h.name, h.labels, labelValues); err != nil {
		return err
	}
	obs, err := h.vec.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return domain.ErrLabelCardinality.WithDetails(h.name).WithCause(err)
	}
	obs.Observe(value)
	return nil
}

// HistogramSnapshot is a point-in-time copy of one histogram series.
type HistogramSnapshot struct {
	Count uint64
	Sum   float64
	// Buckets maps upper bound to cumulative count, +Inf excluded.
	Buckets map[float64]uint64
}

// Snapshot returns the state of a series. A series never observed reports
// an empty snapshot.
func (h *Histogram) Snapshot(labelValues ...string) (HistogramSnapshot, error) {
	snap := HistogramSnapshot{Buckets: map[float64]uint64{}}
	if err := checkCardinality(h.name, h.labels, labelValues); err != nil {
		return snap, err
	}
	m, ok, err := findSeries(h.vec, h.labels, labelValues)
	if err != nil || !ok {
		return snap, err
	}
	hist := m.GetHistogram()
	snap.Count = hist.GetSampleCount()
	snap.Sum = hist.GetSampleSum()
	for _, b := range hist.GetBucket() {
		snap.Buckets[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	return snap, nil
}

// Gauge is an unlabeled metric that can go up and down.
type Gauge struct {
	name  string
	gauge prometheus.Gauge
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Inc adds one to the gauge.
func (g *Gauge) Inc() { g.gauge.Inc() }

// Dec subtracts one from the gauge.
func (g *Gauge) Dec() { g.gauge.Dec() }

// Set replaces the gauge value.
func (g *Gauge) Set(v float64) { g.gauge.Set(v) }

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	var m dto.Metric
	if err := g.gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func checkCardinality(name string, labels, values []string) error {
	if len(labels) != len(values) {
		return domain.ErrLabelCardinality.WithDetails(
			fmt.Sprintf("%s: expected %d label values, got %d", name, len(labels), len(values)))
	}
	return nil
}

// findSeries collects c and returns the series whose labels equal values.
func findSeries(c prometheus.Collector, labels, values []string) (*dto.Metric, bool, error) {
	want := make(map[string]string, len(labels))
	for i, l := range labels {
		want[l] = values[i]
	}

	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var (
		found    *dto.Metric
		firstErr error
	)
	for m := range ch {
		if found != nil || firstErr != nil {
			continue
		}
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			firstErr = err
			continue
		}
		if labelsMatch(pb.GetLabel(), want) {
			found = &pb
		}
	}
	if firstErr != nil {
		return nil, false, fmt.Errorf("read series: %w", firstErr)
	}
	return found, found != nil, nil
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}
