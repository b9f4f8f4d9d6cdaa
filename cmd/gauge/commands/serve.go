package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gaugehq/gauge/internal/app"
)

// serveCommand runs the Gauge server until interrupted.
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the Gauge server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Value:   "config.toml",
				Sources: cli.EnvVars("GAUGE_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gauge, err := app.New(app.Options{
				ConfigPath: cmd.String("config"),
			})
			if err != nil {
				return err
			}

			if err := gauge.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- gauge.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return gauge.Shutdown()
			case err := <-errCh:
				if shutdownErr := gauge.Shutdown(); shutdownErr != nil {
					gauge.Logger.Error("shutdown error", "error", shutdownErr)
				}
				return err
			}
		},
	}
}
