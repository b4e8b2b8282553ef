package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"kurio/internal/app"
	"kurio/internal/financials"
)

func financialsCommand(setup setupFunc) *cli.Command {
	return &cli.Command{
		Name:      "financials",
		Usage:     "Summarize a company's latest 10-K from SEC EDGAR",
		ArgsUsage: "TICKER",
		Action: action(setup, func(ctx context.Context, cmd *cli.Command, e *env) error {
			svc := financials.NewService(app.NewEDGARClient(e.cfg), nil, nil, nil, e.log)
			f, err := svc.Get(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			return writeJSON(e.out, f)
		}),
	}
}
