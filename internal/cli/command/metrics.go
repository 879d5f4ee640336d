package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cropeye-monitor/internal/cli/connection"
)

// MetricsCommand returns the metrics command.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Scrape the monitor and list samples",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "grep",
				Aliases: []string{"g"},
				Usage:   "Only samples whose name starts with `PREFIX`",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Print the exposition text unparsed",
			},
		},
		Action: metricsAction,
	}
}

func metricsAction(c *cli.Context) error {
	client, flags, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	text, err := client.Metrics(commandContext(c), flags.MetricsPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("raw") {
		_, err := fmt.Fprint(c.App.Writer, text)
		return err
	}

	samples, err := connection.ParseMetrics(strings.NewReader(text), c.String("grep"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return render(c, flags, samples)
}
