package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/cropeye-monitor/internal/infra/buildinfo"
)

// BuildInfoCollector exports build information and the process start time.
// Both values are fixed for the life of the process.
type BuildInfoCollector struct {
	info      buildinfo.Info
	startedAt time.Time

	infoDesc  *prometheus.Desc
	startDesc *prometheus.Desc
}

// NewBuildInfoCollector creates a collector under the given namespace.
func NewBuildInfoCollector(namespace string, info buildinfo.Info, startedAt time.Time) *BuildInfoCollector {
	return &BuildInfoCollector{
		info:      info,
		startedAt: startedAt,
		infoDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "build_info"),
			"Build information of the running binary",
			[]string{"version", "commit", "go_version"}, nil,
		),
		startDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "start_time_seconds"),
			"Start time of the process since unix epoch in seconds",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BuildInfoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.infoDesc
	ch <- c.startDesc
}

// Collect implements prometheus.Collector.
func (c *BuildInfoCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.infoDesc, prometheus.GaugeValue, 1,
		c.info.Version, c.info.Commit, c.info.GoVersion)
	ch <- prometheus.MustNewConstMetric(c.startDesc, prometheus.GaugeValue,
		float64(c.startedAt.UnixNano())/1e9)
}
