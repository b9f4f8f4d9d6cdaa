// Package commands provides the CLI command definitions for Gauge.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/gaugehq/gauge/internal/cli/client"
	"github.com/gaugehq/gauge/internal/cli/render"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// App holds the shared CLI state.
type App struct {
	Version string
	Commit  string
	Date    string

	color bool
}

// New creates the root CLI command with all subcommands.
func New(version, commit, date string) *cli.Command {
	app := &App{
		Version: version,
		Commit:  commit,
		Date:    date,
		color:   true,
	}

	return &cli.Command{
		Name:    "gauge",
		Usage:   "Metrics dashboards and alerting",
		Version: version,
		Description: `Gauge polls metrics from Prometheus and Postgres backends, renders them
   on dashboards, and evaluates alert rules against them.

   Use 'gauge serve' to run the server, or the query/alerts/channels/
   datasources commands to talk to a running server.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Gauge server URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("GAUGE_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: table, json, csv",
				Value:   render.FormatTable,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			if cmd.Bool("no-color") {
				app.color = false
				lipgloss.SetHasDarkBackground(false)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			app.serveCommand(),
			app.queryCommand(),
			app.alertsCommand(),
			app.channelsCommand(),
			app.datasourcesCommand(),
			app.versionCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
	}
}

// apiClient builds the API client from the root flags.
func (a *App) apiClient(cmd *cli.Command) (*client.Client, error) {
	return client.New(cmd.String("server"), 30*time.Second)
}

// renderer builds the output renderer from the root flags.
func (a *App) renderer(cmd *cli.Command) (*render.Renderer, error) {
	return render.New(os.Stdout, cmd.String("output"), a.color)
}

// versionCommand shows version information.
func (a *App) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("gauge"), a.Version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(a.Commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(a.Date))
			return nil
		},
	}
}
