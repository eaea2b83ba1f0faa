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

// ChaptersCmd creates the chapters command.
func ChaptersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chapters",
		Short: "List the loaded MPEP chapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runChapters(cmd.Context(), api, os.Stdout, outputJSON)
		},
	}
}

func runChapters(ctx context.Context, api *APIClient, w io.Writer, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := api.Get(ctx, "/chapters")
	if err != nil {
		return fmt.Errorf("failed to list chapters: %w", err)
	}

	var list handlers.ChapterListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse chapters: %w", err)
	}
	return cli.PrintChapters(w, list.Chapters, outputJSON)
}
