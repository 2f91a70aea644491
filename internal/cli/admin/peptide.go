package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peptiq-labs/peptiq/internal/config"
	"github.com/peptiq-labs/peptiq/internal/database"
	"github.com/peptiq-labs/peptiq/internal/openai"
	"github.com/peptiq-labs/peptiq/internal/repository"
	"github.com/peptiq-labs/peptiq/internal/service"
)

func PeptideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peptide",
		Short: "Manage peptide records",
		Long:  "Add, list and delete peptide records in the semantic store",
	}

	cmd.AddCommand(PeptideAddCmd())
	cmd.AddCommand(PeptideListCmd())
	cmd.AddCommand(PeptideDeleteCmd())

	return cmd
}

func PeptideAddCmd() *cobra.Command {
	var (
		overview       string
		mechanism      string
		researchFields []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a peptide record",
		Long:  "Add a peptide record and embed it into the semantic store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPeptideAdd(args[0], overview, mechanism, researchFields, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&overview, "overview", "", "Overview of the peptide (required)")
	cmd.Flags().StringVar(&mechanism, "mechanism", "", "Mechanism of action")
	cmd.Flags().StringSliceVar(&researchFields, "field", nil, "Research field (repeatable)")
	cmd.MarkFlagRequired("overview")

	return cmd
}

func runPeptideAdd(name, overview, mechanism string, researchFields []string, outputFormat string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("PEPTIQ_OPENAI_API_KEY is required to embed peptides")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	svc := service.NewPeptideService(repository.NewPeptideRepository(pool), openai.NewClient(cfg.OpenAIAPIKey))

	peptide, err := svc.Create(ctx, service.CreateInput{
		Name:           name,
		Overview:       overview,
		Mechanism:      mechanism,
		ResearchFields: researchFields,
	})
	if err != nil {
		return fmt.Errorf("failed to add peptide: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         peptide.ID,
			"name":       peptide.Name,
			"created_at": peptide.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Peptide added: %s (%s)\n", peptide.Name, peptide.ID)
	}

	return nil
}

func PeptideListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List peptide records",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runPeptideList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPeptideList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	peptides, err := repository.NewPeptideRepository(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list peptides: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(peptides))
		for i, p := range peptides {
			data[i] = map[string]interface{}{
				"id":         p.ID,
				"name":       p.Name,
				"overview":   p.Overview,
				"created_at": p.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(peptides) == 0 {
			fmt.Println("No peptides found")
			return nil
		}
		fmt.Println("Peptides:")
		for _, p := range peptides {
			fmt.Printf("  %s: %s\n", p.Name, p.Overview)
		}
	}

	return nil
}

func PeptideDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a peptide record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.NewPeptideRepository(pool).DeleteByName(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete peptide: %w", err)
			}

			fmt.Printf("Peptide deleted: %s\n", args[0])
			return nil
		},
	}
}
