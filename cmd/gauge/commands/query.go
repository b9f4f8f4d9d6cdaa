package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gaugehq/gauge/pkg/models"
)

// queryCommand runs an ad-hoc range query against a running server.
func (a *App) queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a range query against a datasource",
		ArgsUsage: "[expression]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "datasource",
				Aliases: []string{"d"},
				Usage:   "datasource name (default prometheus)",
			},
			&cli.StringFlag{
				Name:    "metric",
				Aliases: []string{"m"},
				Usage:   "metric name, used when no expression is given",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "range start, absolute or relative (e.g. now-1h)",
				Value: "now-1h",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "range end, absolute or relative",
				Value: "now",
			},
			&cli.StringFlag{
				Name:  "aggregation",
				Usage: "aggregation function (avg, sum, min, max, count)",
			},
			&cli.StringSliceFlag{
				Name:  "group-by",
				Usage: "column to group by (row-store datasources)",
			},
			&cli.StringFlag{
				Name:  "step",
				Usage: "resolution step (e.g. 30s)",
			},
			&cli.BoolFlag{
				Name:  "rate",
				Usage: "wrap the metric in a per-second rate (pull datasources)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req := models.QueryRequest{
				Datasource:  cmd.String("datasource"),
				Query:       cmd.Args().First(),
				Metric:      cmd.String("metric"),
				From:        cmd.String("from"),
				To:          cmd.String("to"),
				Step:        cmd.String("step"),
				Aggregation: cmd.String("aggregation"),
				GroupBy:     cmd.StringSlice("group-by"),
				Rate:        cmd.Bool("rate"),
			}
			if req.Query == "" && req.Metric == "" {
				return fmt.Errorf("an expression argument or --metric is required")
			}

			c, err := a.apiClient(cmd)
			if err != nil {
				return err
			}
			result, err := c.Query(ctx, req)
			if err != nil {
				return err
			}

			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.QueryResult(result)
		},
	}
}
