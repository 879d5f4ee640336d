// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for cropeye-monitor.
type ServerConfig struct {
	Service    ServiceSection    `koanf:"service"`
	Server     ServerSection     `koanf:"server"`
	Metrics    MetricsSection    `koanf:"metrics"`
	Simulation SimulationSection `koanf:"simulation"`
	Log        LogSection        `koanf:"log"`
}

// ServiceSection identifies the service.
type ServiceSection struct {
	// Name is reported by the health endpoint.
	Name string `koanf:"name"`
}

// ServerSection configures the HTTP endpoint and its middleware.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = CORS headers off).
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimit is the per-client-IP limit in requests/second (0 = unlimited).
	RateLimit int `koanf:"rate_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
}

// MetricsSection configures the metric registry and scrape endpoint.
type MetricsSection struct {
	// Path is the scrape endpoint path.
	Path string `koanf:"path"`

	// Runtime registers the Go runtime and process collectors.
	Runtime bool `koanf:"runtime"`

	// BuildInfo registers the build information collector.
	BuildInfo bool `koanf:"build_info"`

	// DurationBuckets overrides the request duration histogram buckets.
	DurationBuckets []float64 `koanf:"duration_buckets"`
}

// SimulationSection configures the simulated work of the example endpoints.
type SimulationSection struct {
	QueryDelay   DelayRange `koanf:"query_delay"`
	ConnectDelay DelayRange `koanf:"connect_delay"`
}

// DelayRange is an inclusive range a random delay is drawn from.
type DelayRange struct {
	Min time.Duration `koanf:"min"`
	Max time.Duration `koanf:"max"`
}

// LogSection configures logging.
type LogSection struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AccessLog bool   `koanf:"access_log"`
}
