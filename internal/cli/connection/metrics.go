package connection

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Sample is one flattened series of a scrape.
type Sample struct {
	Name   string  `json:"name" yaml:"name"`
	Labels string  `json:"labels" yaml:"labels"`
	Value  float64 `json:"value" yaml:"value"`
}

// ParseMetrics decodes a text exposition body into samples whose name
// starts with prefix (all samples when prefix is empty). Histograms and
// summaries contribute their _count and _sum series.
func ParseMetrics(r io.Reader, prefix string) ([]Sample, error) {
	dec := expfmt.NewDecoder(r, expfmt.NewFormat(expfmt.TypeTextPlain))

	var samples []Sample
	for {
		var mf dto.MetricFamily
		if err := dec.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse metrics: %w", err)
		}
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			samples = append(samples, flatten(mf.GetName(), mf.GetType(), m)...)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func flatten(name string, typ dto.MetricType, m *dto.Metric) []Sample {
	labels := formatLabels(m.GetLabel())
	switch typ {
	case dto.MetricType_COUNTER:
		return []Sample{{Name: name, Labels: labels, Value: m.GetCounter().GetValue()}}
	case dto.MetricType_GAUGE:
		return []Sample{{Name: name, Labels: labels, Value: m.GetGauge().GetValue()}}
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return []Sample{
			{Name: name + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
			{Name: name + "_sum", Labels: labels, Value: h.GetSampleSum()},
		}
	case dto.MetricType_SUMMARY:
		s := m.GetSummary()
		return []Sample{
			{Name: name + "_count", Labels: labels, Value: float64(s.GetSampleCount())},
			{Name: name + "_sum", Labels: labels, Value: s.GetSampleSum()},
		}
	default:
		v := m.GetUntyped().GetValue()
		if math.IsNaN(v) {
			return nil
		}
		return []Sample{{Name: name, Labels: labels, Value: v}}
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
