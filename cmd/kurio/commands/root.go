// Package commands implements the kurio command line: asking questions and
// looking up financials and insights without the web API.
package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/urfave/cli/v3"

	"kurio/internal/common/config"
	"kurio/internal/common/logger"
)

// ConfigLoader returns the configuration; path is empty unless --config is set.
type ConfigLoader func(path string) (*config.Config, error)

// LoadConfig reads an explicit file or the usual configs/ lookup.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

type env struct {
	cfg *config.Config
	log logger.Logger
	out io.Writer
}

// New builds the root command.
func New(load ConfigLoader) *cli.Command {
	setup := func(cmd *cli.Command) (*env, error) {
		cfg, err := load(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		// stdout carries the answer; logs go to stderr.
		log := logger.NewStructured(cmd.String("log-level"), "console", "stderr")
		return &env{cfg: cfg, log: log, out: cmd.Root().Writer}, nil
	}

	return &cli.Command{
		Name:  "kurio",
		Usage: "Ask career questions and look up company data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "configuration file (defaults to configs/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			askCommand(setup),
			financialsCommand(setup),
			insightsCommand(setup),
		},
	}
}

type setupFunc func(cmd *cli.Command) (*env, error)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// action adapts a setup-aware function to a cli action.
func action(setup setupFunc, fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, e)
	}
}
