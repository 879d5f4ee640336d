package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cropeye-monitor/internal/infra/buildinfo"
	"github.com/yndnr/cropeye-monitor/internal/infra/confloader"
	"github.com/yndnr/cropeye-monitor/internal/infra/shutdown"
	"github.com/yndnr/cropeye-monitor/internal/infra/tlsroots"
	"github.com/yndnr/cropeye-monitor/internal/server/config"
	"github.com/yndnr/cropeye-monitor/internal/server/httpserver"
	"github.com/yndnr/cropeye-monitor/internal/server/httpserver/handler"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/logger"
	"github.com/yndnr/cropeye-monitor/internal/telemetry/metric"
)

// metricNamespace prefixes the process-level collectors.
const metricNamespace = "cropeye_monitor"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cropeye-monitor",
		Usage:   "CropEye monitoring service",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (overrides server.http.addr)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides log.level)",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String("config"), flagOverrides(c))
		},
	}
}

// flagOverrides maps explicitly set flags to configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := map[string]any{}
	if c.IsSet("addr") {
		overrides["server.http.addr"] = c.String("addr")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	return overrides
}

func run(ctx context.Context, configFile string, overrides map[string]any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configFile, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting cropeye-monitor",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)

	svc, err := newService(cfg, log, time.Now())
	if err != nil {
		return err
	}

	serverOpts := []httpserver.Option{
		httpserver.WithReadHeaderTimeout(cfg.Server.HTTP.ReadHeaderTimeout),
	}
	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	tlsEnabled := cfg.Server.HTTP.TLSCertFile != ""
	if tlsEnabled {
		certs, err := tlsroots.NewReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(log.Slog()))
		if err != nil {
			return fmt.Errorf("load tls certificate: %w", err)
		}
		certs.StartAsync()
		shutdownHandler.OnShutdown("tls-reloader", func(context.Context) error {
			return certs.Stop()
		})
		serverOpts = append(serverOpts, httpserver.WithTLSConfig(certs.ServerConfig()))
	}

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, svc.router, serverOpts...)

	// Hooks run in reverse: stop advertising readiness, drain HTTP, then
	// stop the file watchers.
	if configFile != "" {
		watcher, err := watchConfig(configFile, overrides, log)
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}
	shutdownHandler.OnShutdown("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown("readiness", func(context.Context) error {
		svc.handler.BeginShutdown()
		return nil
	})

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"metrics_path", cfg.Metrics.Path,
			"tls", tlsEnabled)

		var err error
		if tlsEnabled {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
			cancel(err)
		}
	}()

	if err := shutdownHandler.WaitContext(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return fmt.Errorf("http server: %w", cause)
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional file, the environment and flag
// overrides, then validates the result.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// service is the assembled request path: registry, instruments, handler
// and router.
type service struct {
	registry *metric.Registry
	metrics  *metric.ServiceMetrics
	handler  *handler.Handler
	router   http.Handler
}

func newService(cfg *config.ServerConfig, log logger.Logger, startedAt time.Time) (*service, error) {
	registry := metric.NewRegistry()

	sm, err := metric.NewServiceMetrics(registry, cfg.Metrics.DurationBuckets)
	if err != nil {
		return nil, fmt.Errorf("register service metrics: %w", err)
	}
	if cfg.Metrics.BuildInfo {
		collector := metric.NewBuildInfoCollector(metricNamespace, buildinfo.Get(), startedAt)
		if err := registry.RegisterCollector(collector); err != nil {
			return nil, fmt.Errorf("register build info: %w", err)
		}
	}
	if cfg.Metrics.Runtime {
		if err := registry.RegisterRuntime(); err != nil {
			return nil, fmt.Errorf("register runtime collectors: %w", err)
		}
	}

	h := handler.New(handler.Config{
		ServiceName:  cfg.Service.Name,
		Registry:     registry,
		Metrics:      sm,
		Logger:       log,
		QueryDelay:   handler.DelayRange(cfg.Simulation.QueryDelay),
		ConnectDelay: handler.DelayRange(cfg.Simulation.ConnectDelay),
	})

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Handler:            h,
		Metrics:            sm,
		Logger:             log,
		MetricsPath:        cfg.Metrics.Path,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimit:          cfg.Server.RateLimit,
		AccessLog:          cfg.Log.AccessLog,
	})

	return &service{registry: registry, metrics: sm, handler: h, router: router}, nil
}

// watchConfig reloads the file on change and applies log.level. Other
// settings take effect on restart.
func watchConfig(configFile string, overrides map[string]any, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(configFile, overrides)
		if err != nil {
			log.Warn("config reload rejected", "path", path, "error", err)
			return
		}
		applyLogLevel(cfg.Log.Level, log)
	})
	watcher.StartAsync()
	return watcher, nil
}

// applyLogLevel switches the global level and reports whether it changed.
// Aliases such as "warning" compare equal to the level they select.
func applyLogLevel(configured string, log logger.Logger) bool {
	level := logger.NormalizeLevel(configured)
	old := logger.GetLevel()
	if old == level {
		return false
	}
	logger.SetLevel(level)
	log.Info("log level changed", "from", old, "to", level)
	return true
}
