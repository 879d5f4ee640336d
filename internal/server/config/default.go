package config

import "time"

// Default configuration values.
const (
	DefaultServiceName = "python-monitoring"

	DefaultHTTPAddr          = "0.0.0.0:8000"
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second

	DefaultMetricsPath = "/metrics"

	DefaultQueryDelayMin   = 100 * time.Millisecond
	DefaultQueryDelayMax   = 500 * time.Millisecond
	DefaultConnectDelayMin = 1 * time.Second
	DefaultConnectDelayMax = 3 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Service: ServiceSection{
			Name: DefaultServiceName,
		},
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				ReadHeaderTimeout: DefaultReadHeaderTimeout,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Metrics: MetricsSection{
			Path:      DefaultMetricsPath,
			BuildInfo: true,
		},
		Simulation: SimulationSection{
			QueryDelay: DelayRange{
				Min: DefaultQueryDelayMin,
				Max: DefaultQueryDelayMax,
			},
			ConnectDelay: DelayRange{
				Min: DefaultConnectDelayMin,
				Max: DefaultConnectDelayMax,
			},
		},
		Log: LogSection{
			Level:     DefaultLogLevel,
			Format:    DefaultLogFormat,
			AccessLog: true,
		},
	}
}
