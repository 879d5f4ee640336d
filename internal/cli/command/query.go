package command

import (
	"github.com/urfave/cli/v2"
)

// QueryCommand returns the query command.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Send one farming query",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Query type (server default: general)",
			},
		},
		Action: queryAction,
	}
}

func queryAction(c *cli.Context) error {
	client, flags, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.FarmingQuery(commandContext(c), c.String("type"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return render(c, flags, resp)
}
