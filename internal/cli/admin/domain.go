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

func DomainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage the web-search allow-list",
		Long:  "Allow, list and remove hosts the web tier may fetch from",
	}

	cmd.AddCommand(DomainAllowCmd())
	cmd.AddCommand(DomainListCmd())
	cmd.AddCommand(DomainRemoveCmd())

	return cmd
}

func DomainAllowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allow <host>",
		Short: "Allow a host for web search",
		Long:  "Allow a host (and its subdomains) for web search. Use '*' to allow every host.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			allowed := &domain.AllowedDomain{
				ID:        uuid.NewString(),
				Host:      args[0],
				CreatedAt: time.Now().UTC(),
			}

			if err := repository.NewAllowedDomainRepository(pool).Create(ctx, allowed); err != nil {
				return fmt.Errorf("failed to allow domain: %w", err)
			}

			fmt.Printf("Domain allowed: %s (%s)\n", allowed.Host, allowed.ID)
			return nil
		},
	}
}

func DomainListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allowed hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			domains, err := repository.NewAllowedDomainRepository(pool).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list allowed domains: %w", err)
			}

			if outputFormat == "json" {
				data := make([]map[string]interface{}, len(domains))
				for i, d := range domains {
					data[i] = map[string]interface{}{
						"id":         d.ID,
						"host":       d.Host,
						"created_at": d.CreatedAt,
					}
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			if len(domains) == 0 {
				fmt.Println("No allowed domains found (web tier is blocked)")
				return nil
			}
			fmt.Println("Allowed domains:")
			for _, d := range domains {
				fmt.Printf("  %s: %s\n", d.ID, d.Host)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func DomainRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an allowed host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.NewAllowedDomainRepository(pool).Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to remove allowed domain: %w", err)
			}

			fmt.Printf("Domain removed: %s\n", args[0])
			return nil
		},
	}
}
