package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"kurio/internal/app"
	"kurio/internal/common/rag"
)

func askCommand(setup setupFunc) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask the question-answering service",
		ArgsUsage: "QUESTION...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "method",
				Usage: "retrieval method: " + methodList(),
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "number of documents to retrieve",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "retries after a timeout or connection failure",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "service base URL, overriding the configured one",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the full response as JSON",
			},
		},
		Action: action(setup, askAction),
	}
}

func askAction(ctx context.Context, cmd *cli.Command, e *env) error {
	if url := cmd.String("url"); url != "" {
		e.cfg.RAG.BaseURL = url
	}
	client, err := app.NewAsker(e.cfg, e.log)
	if err != nil {
		return err
	}

	var opts []rag.Option
	if cmd.IsSet("method") {
		opts = append(opts, rag.WithRetrievalMethod(rag.RetrievalMethod(cmd.String("method"))))
	}
	if cmd.IsSet("k") {
		opts = append(opts, rag.WithK(int(cmd.Int("k"))))
	}
	if cmd.IsSet("retries") {
		opts = append(opts, rag.WithRetries(int(cmd.Int("retries"))))
	}

	question := strings.Join(cmd.Args().Slice(), " ")
	answer, err := client.Ask(ctx, question, opts...)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(e.out, answer)
	}
	_, err = fmt.Fprintln(e.out, answer.Answer)
	return err
}

func methodList() string {
	names := make([]string, 0, len(rag.Methods()))
	for _, m := range rag.Methods() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
