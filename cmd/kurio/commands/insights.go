package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"kurio/internal/app"
)

func insightsCommand(setup setupFunc) *cli.Command {
	return &cli.Command{
		Name:  "insights",
		Usage: "List editorial insights, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print every field as JSON",
			},
		},
		Action: action(setup, func(ctx context.Context, cmd *cli.Command, e *env) error {
			list, err := app.NewInsights(e.cfg, nil, e.log).List(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return writeJSON(e.out, list)
			}
			for _, in := range list {
				if _, err := fmt.Fprintf(e.out, "%-10s  %s\n", in.PublishedAt, in.Title); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}
