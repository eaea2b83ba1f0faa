package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/api/handlers"
	"github.com/cloo-solutions/mpedge/internal/cli"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var chapters []string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the MPEP",
		Long: `Sends the question to the MPEdge server and prints the answer with its citations.

Without --chapter the server picks the most relevant chapters itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), api, os.Stdout, args[0], chapters, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&chapters, "chapter", "c", nil, "Restrict to chapter id (repeatable)")

	return cmd
}

func runAsk(ctx context.Context, api *APIClient, w io.Writer, query string, chapters []string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := api.Post(ctx, "/ask", handlers.AskRequest{Query: query, Chapters: chapters})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer handlers.AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}
	return cli.PrintAnswer(w, answer, outputJSON)
}
