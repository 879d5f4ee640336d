package command

import (
	"github.com/urfave/cli/v2"
)

// HealthReport combines /health and /ready.
type HealthReport struct {
	Server  string `json:"server"`
	Service string `json:"service"`
	Health  string `json:"health"`
	Ready   string `json:"ready"`
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check monitor liveness and readiness",
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	client, flags, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)

	health, err := client.Health(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	ready, err := client.Ready(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return render(c, flags, HealthReport{
		Server:  client.BaseURL(),
		Service: health.Service,
		Health:  health.Status,
		Ready:   ready.Status,
	})
}
