package admin

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/api/handlers"
	"github.com/cloo-solutions/mpedge/internal/cli"
	"github.com/cloo-solutions/mpedge/internal/service"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// AskCmd runs the ask pipeline in-process against the configured corpus
func AskCmd() *cobra.Command {
	var (
		chapters []string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question in-process",
		Long:  "Load the corpus, select chapters, retrieve passages and ask the provider chain without running the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("invalid --output %q (expected text or json)", output)
			}
			ctx := context.Background()

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			store, err := rt.openStore(ctx)
			if err != nil {
				return err
			}
			var askLog service.AskLogRepository
			repo, err := rt.askLogRepository(ctx)
			if err != nil {
				return err
			}
			if repo != nil {
				askLog = repo
			}
			askSvc, err := rt.askService(store, askLog)
			if err != nil {
				return err
			}

			result, err := askSvc.Ask(ctx, service.AskInput{Query: args[0], Chapters: chapters})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			return cli.PrintAnswer(os.Stdout, handlers.NewAskResponse(result), output == outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&chapters, "chapter", "c", nil, "Restrict to chapter id (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format (text or json)")
	cli.FlagEnum(cmd.Flags(), "output", outputText, outputJSON)

	return withConfigEnv(cmd)
}
