package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/yndnr/cropeye-monitor/internal/core/domain"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
)

// Verify validates the configuration. The returned error wraps
// domain.ErrInvalidConfig.
func Verify(cfg *ServerConfig) error {
	checks := []func(*ServerConfig) error{
		verifyService,
		verifyServer,
		verifyMetrics,
		verifySimulation,
		verifyLog,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return domain.ErrInvalidConfig.WithDetails(err.Error())
		}
	}
	return nil
}

func verifyService(cfg *ServerConfig) error {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		return fmt.Errorf("service.name is required")
	}
	return nil
}

func verifyServer(cfg *ServerConfig) error {
	s := &cfg.Server
	if err := verifyAddr(s.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (s.HTTP.TLSCertFile == "") != (s.HTTP.TLSKeyFile == "") {
		return fmt.Errorf("server.http.tls_cert_file and server.http.tls_key_file must be set together")
	}
	if s.HTTP.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.http.read_header_timeout must not be negative")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	return nil
}

func verifyAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}

func verifyMetrics(cfg *ServerConfig) error {
	m := &cfg.Metrics
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	if m.Path == "/" || m.Path == "/health" || m.Path == "/ready" || strings.HasPrefix(m.Path, "/api/") {
		return fmt.Errorf("metrics.path %q collides with a service route", m.Path)
	}
	for i := 1; i < len(m.DurationBuckets); i++ {
		if m.DurationBuckets[i] <= m.DurationBuckets[i-1] {
			return fmt.Errorf("metrics.duration_buckets must be strictly increasing")
		}
	}
	return nil
}

func verifySimulation(cfg *ServerConfig) error {
	ranges := []struct {
		key string
		r   DelayRange
	}{
		{"simulation.query_delay", cfg.Simulation.QueryDelay},
		{"simulation.connect_delay", cfg.Simulation.ConnectDelay},
	}
	for _, dr := range ranges {
		if dr.r.Min < 0 || dr.r.Max < 0 {
			return fmt.Errorf("%s must not be negative", dr.key)
		}
		if dr.r.Min > dr.r.Max {
			return fmt.Errorf("%s.min (%s) exceeds max (%s)", dr.key, dr.r.Min, dr.r.Max)
		}
	}
	return nil
}

func verifyLog(cfg *ServerConfig) error {
	if !logger.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Log.Format)
	}
	return nil
}
