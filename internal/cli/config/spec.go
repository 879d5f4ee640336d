package config

import "time"

// ProbeConfig is the configuration for cropeye-probe.
type ProbeConfig struct {
	// Server is the monitor address, with or without scheme.
	Server string `koanf:"server" yaml:"server"`
	// Output is one of table, json, yaml.
	Output string `koanf:"output" yaml:"output"`
	// Timeout bounds each request.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// MetricsPath is where the monitor serves its scrape endpoint.
	MetricsPath string `koanf:"metrics_path" yaml:"metrics_path"`
	// CAFile is an extra PEM root for https monitors with a private CA.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`
}

// Default returns the default probe configuration.
func Default() *ProbeConfig {
	return &ProbeConfig{
		Server:      "localhost:8000",
		Output:      "table",
		Timeout:     10 * time.Second,
		MetricsPath: "/metrics",
	}
}
