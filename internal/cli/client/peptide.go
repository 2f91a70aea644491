package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type peptideItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Overview  string `json:"overview"`
	CreatedAt string `json:"created_at"`
}

type similarItem struct {
	Name            string  `json:"name"`
	SimilarityScore float64 `json:"similarity_score"`
	Overview        string  `json:"overview"`
}

func ListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List peptide records",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("output")

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := client.Get("/peptides/")
			if err != nil {
				return err
			}

			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(json.RawMessage(resp.Data), "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			var peptides []peptideItem
			if err := json.Unmarshal(resp.Data, &peptides); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(peptides) == 0 {
				fmt.Println("No peptides found")
				return nil
			}
			for _, p := range peptides {
				fmt.Printf("%s: %s\n", p.Name, p.Overview)
			}
			return nil
		},
	}
}

func SimilarCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <peptide>",
		Short: "List stored peptides closest to the named one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("output")

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := client.Get(fmt.Sprintf("/peptides/%s/similar?limit=%d", url.PathEscape(args[0]), limit))
			if err != nil {
				return err
			}

			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(json.RawMessage(resp.Data), "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			var results []similarItem
			if err := json.Unmarshal(resp.Data, &results); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("No similar peptides found")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%.6f  %s: %s\n", r.SimilarityScore, r.Name, r.Overview)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")

	return cmd
}
