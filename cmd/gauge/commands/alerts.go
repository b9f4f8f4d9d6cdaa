package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/gaugehq/gauge/pkg/models"
)

// alertsCommand groups the alert rule subcommands.
func (a *App) alertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "inspect alert rules",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all alert rules",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					alerts, err := c.ListAlerts(ctx)
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.Alerts(alerts)
				},
			},
			{
				Name:      "history",
				Usage:     "show a rule's evaluation history, newest first",
				ArgsUsage: "<alert-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "maximum number of entries",
						Value:   models.DefaultAlertHistoryLimit,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := parseAlertID(cmd.Args().First())
					if err != nil {
						return err
					}
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					history, err := c.ListAlertHistory(ctx, id, int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.AlertHistory(history)
				},
			},
		},
	}
}

func parseAlertID(arg string) (models.AlertID, error) {
	if arg == "" {
		return 0, fmt.Errorf("an alert id argument is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alert id: %s", arg)
	}
	return models.AlertID(id), nil
}
