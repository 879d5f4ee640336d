package command

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cropeye-monitor/internal/cli/output"
)

// ConnectResult is the outcome of one simulated connection.
type ConnectResult struct {
	Status  string        `json:"status"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:   "connect",
		Usage:  "Open one simulated connection and wait for it to finish",
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	client, flags, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(statusWriter(c, flags), "connecting to "+client.BaseURL())
	spinner.Start()

	start := time.Now()
	resp, err := client.Connect(commandContext(c))
	if err != nil {
		spinner.Fail(err.Error())
		return cli.Exit(err.Error(), 1)
	}
	spinner.Stop()

	return render(c, flags, ConnectResult{Status: resp.Status, Elapsed: time.Since(start)})
}
