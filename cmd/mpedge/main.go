package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/cli"
	"github.com/cloo-solutions/mpedge/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mpedge",
		Short: "MPEdge CLI - ask questions about the MPEP",
		Long: `MPEdge CLI sends questions to an MPEdge server and prints cited answers.

Environment variables:
  MPEDGE_API_KEY   API key, when the server requires one
  MPEDGE_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	client.AddGlobalFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ChaptersCmd())
	rootCmd.AddCommand(client.AuthCmd())

	if handled, err := cli.HandleHelpJSON(rootCmd, os.Stdout, os.Args[1:]); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
