package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/cropeye-monitor/internal/cli/config"
	"github.com/yndnr/cropeye-monitor/internal/cli/connection"
	"github.com/yndnr/cropeye-monitor/internal/cli/output"
	"github.com/yndnr/cropeye-monitor/internal/infra/buildinfo"
	"github.com/yndnr/cropeye-monitor/internal/infra/tlsroots"
)

const metaConfig = "probeConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "cropeye-probe",
		Usage:   "Exercise and inspect a running cropeye-monitor",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			HealthCommand(),
			QueryCommand(),
			ConnectCommand(),
			MetricsCommand(),
			LoadCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := cliconfig.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.App.Metadata == nil {
				c.App.Metadata = map[string]any{}
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
	}
}

// globalFlags returns the global CLI flags. Values left unset fall back to
// the probe config.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Probe config file (default ~/.cropeye/probe.yaml)",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Monitor address (e.g., localhost:8000)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:  "metrics-path",
			Usage: "Scrape endpoint path on the monitor",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM file with an extra root CA for https servers",
		},
	}
}

// GlobalFlags are the resolved global settings.
type GlobalFlags struct {
	Server      string
	Output      output.Format
	Timeout     time.Duration
	MetricsPath string
	CAFile      string
}

// ParseGlobalFlags merges explicitly set flags over the loaded config.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := cliconfig.Default()
	if loaded, ok := c.App.Metadata[metaConfig].(*cliconfig.ProbeConfig); ok {
		cfg = loaded
	}

	flags := &GlobalFlags{
		Server:      cfg.Server,
		Timeout:     cfg.Timeout,
		MetricsPath: cfg.MetricsPath,
		CAFile:      cfg.CAFile,
	}
	format := cfg.Output

	if c.IsSet("server") {
		flags.Server = c.String("server")
	}
	if c.IsSet("output") {
		format = c.String("output")
	}
	if c.IsSet("timeout") {
		flags.Timeout = c.Duration("timeout")
	}
	if c.IsSet("metrics-path") {
		flags.MetricsPath = c.String("metrics-path")
	}
	if c.IsSet("ca-file") {
		flags.CAFile = c.String("ca-file")
	}

	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	flags.Output = f
	return flags, nil
}

// EnsureConnected returns a client for the configured server.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, *GlobalFlags, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}
	if flags.Server == "" {
		return nil, nil, fmt.Errorf("no server configured (use --server)")
	}

	var opts []connection.ClientOption
	if flags.CAFile != "" {
		pool, err := tlsroots.LoadCAFile(flags.CAFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, connection.WithTLSConfig(pool.ClientConfig()))
	}
	return connection.NewHTTPClient(flags.Server, flags.Timeout, opts...), flags, nil
}

// render writes data to the app writer in the selected format.
func render(c *cli.Context, flags *GlobalFlags, data any) error {
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

// statusWriter is where transient progress goes. Machine-readable formats
// keep it off so stdout and stderr stay clean for scripts.
func statusWriter(c *cli.Context, flags *GlobalFlags) io.Writer {
	if flags.Output != output.FormatTable || c.App.ErrWriter == nil {
		return io.Discard
	}
	return c.App.ErrWriter
}

func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
