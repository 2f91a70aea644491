package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peptiq-labs/peptiq/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "peptiqd",
		Short: "Peptiq daemon and admin CLI",
		Long:  "Peptiq daemon for running the API server and managing peptides, restrictions and the web-search allow-list",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.PeptideCmd())
	rootCmd.AddCommand(admin.RestrictionCmd())
	rootCmd.AddCommand(admin.DomainCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
