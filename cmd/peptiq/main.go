package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peptiq-labs/peptiq/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "peptiq",
		Short: "Peptiq CLI - peptide research Q&A",
		Long: `Peptiq CLI asks questions against a running peptiq server.

Environment variables:
  PEPTIQ_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.RecommendCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.SimilarCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
