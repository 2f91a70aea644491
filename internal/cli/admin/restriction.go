package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/peptiq-labs/peptiq/internal/domain"
	"github.com/peptiq-labs/peptiq/internal/repository"
)

func RestrictionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restriction",
		Short: "Manage generation restrictions",
		Long:  "Add, list and delete restriction statements applied to every generated answer",
	}

	cmd.AddCommand(RestrictionAddCmd())
	cmd.AddCommand(RestrictionListCmd())
	cmd.AddCommand(RestrictionDeleteCmd())

	return cmd
}

func RestrictionAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Add a restriction statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			restriction := &domain.Restriction{
				ID:        uuid.NewString(),
				Text:      args[0],
				CreatedAt: time.Now().UTC(),
			}

			if err := repository.NewRestrictionRepository(pool).Create(ctx, restriction); err != nil {
				return fmt.Errorf("failed to add restriction: %w", err)
			}

			fmt.Printf("Restriction added: %s\n", restriction.ID)
			return nil
		},
	}
}

func RestrictionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List restriction statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			restrictions, err := repository.NewRestrictionRepository(pool).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list restrictions: %w", err)
			}

			if outputFormat == "json" {
				data := make([]map[string]interface{}, len(restrictions))
				for i, r := range restrictions {
					data[i] = map[string]interface{}{
						"id":         r.ID,
						"text":       r.Text,
						"created_at": r.CreatedAt,
					}
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			if len(restrictions) == 0 {
				fmt.Println("No restrictions found")
				return nil
			}
			fmt.Println("Restrictions:")
			for _, r := range restrictions {
				fmt.Printf("  %s: %s\n", r.ID, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func RestrictionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a restriction statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.NewRestrictionRepository(pool).Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete restriction: %w", err)
			}

			fmt.Printf("Restriction deleted: %s\n", args[0])
			return nil
		},
	}
}
