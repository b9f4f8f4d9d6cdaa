package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// channelsCommand groups the notification channel subcommands.
func (a *App) channelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "inspect notification channels",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all notification channels",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					channels, err := c.ListChannels(ctx)
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.Channels(channels)
				},
			},
		},
	}
}

// datasourcesCommand groups the backend diagnostics subcommands.
func (a *App) datasourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "datasources",
		Usage: "inspect datasource backends",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list registered backends and their live status",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					statuses, err := c.ListDatasources(ctx)
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.Datasources(statuses)
				},
			},
			{
				Name:      "test",
				Usage:     "run a connectivity check against a backend",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("a datasource name argument is required")
					}
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					connected, err := c.TestDatasource(ctx, name)
					if err != nil {
						return err
					}
					if connected {
						fmt.Printf("%s %s is reachable\n", successStyle.Render("✓"), name)
						return nil
					}
					fmt.Printf("%s %s is not reachable\n", errorStyle.Render("✗"), name)
					return nil
				},
			},
			{
				Name:      "logs",
				Usage:     "show a backend's diagnostic log buffer",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("a datasource name argument is required")
					}
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					entries, err := c.GetDatasourceLogs(ctx, name)
					if err != nil {
						return err
					}
					r, err := a.renderer(cmd)
					if err != nil {
						return err
					}
					return r.DatasourceLogs(entries)
				},
			},
			{
				Name:  "metrics",
				Usage: "list known metric names per backend",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := a.apiClient(cmd)
					if err != nil {
						return err
					}
					metrics, err := c.ListMetrics(ctx)
					if err != nil {
						return err
					}
					for name, names := range metrics {
						fmt.Println(logoStyle.Render(name))
						for _, metric := range names {
							fmt.Printf("  %s\n", metric)
						}
					}
					return nil
				},
			},
		},
	}
}
