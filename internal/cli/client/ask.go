package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

type askResult struct {
	Answer               string  `json:"answer"`
	MatchedPeptide       string  `json:"matched_peptide"`
	SimilarityScore      *float64 `json:"similarity_score"`
	ServedFromCache      bool    `json:"served_from_cache"`
	Tier                 string  `json:"tier"`
	Uncertain            bool    `json:"uncertain"`
	WebSearchRecommended bool    `json:"web_search_recommended"`
	Sources              []struct {
		URL             string  `json:"url"`
		Title           string  `json:"title"`
		SimilarityScore float64 `json:"similarity_score"`
		ContentLength   int     `json:"content_length"`
	} `json:"sources"`
}

func AskCmd() *cobra.Command {
	var peptide string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Ask a question against the peptide store, optionally scoped to one peptide",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			jsonOutput, _ := cmd.Flags().GetBool("output")

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := "/ask"
			if peptide != "" {
				path = fmt.Sprintf("/peptides/%s/ask", url.PathEscape(peptide))
			}

			resp, err := client.Post(path, map[string]string{"question": question})
			if err != nil {
				return err
			}

			return printAskResult(resp, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&peptide, "peptide", "", "Scope the question to one named peptide")

	return cmd
}

func RecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <peptide>",
		Short: "Recommend peptides similar to the named one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("output")

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := client.Get(fmt.Sprintf("/peptides/%s/recommendations", url.PathEscape(args[0])))
			if err != nil {
				return err
			}

			return printAskResult(resp, jsonOutput)
		},
	}
}

func printAskResult(resp *APIResponse, jsonOutput bool) error {
	if jsonOutput {
		var pretty json.RawMessage = resp.Data
		jsonBytes, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	var result askResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	fmt.Println(result.Answer)

	var notes []string
	if result.MatchedPeptide != "" {
		notes = append(notes, "matched: "+result.MatchedPeptide)
	}
	notes = append(notes, "tier: "+result.Tier)
	if result.ServedFromCache {
		notes = append(notes, "cached")
	}
	if result.Uncertain {
		notes = append(notes, "uncertain")
	}
	if result.WebSearchRecommended {
		notes = append(notes, "web search recommended")
	}
	fmt.Printf("\n[%s]\n", strings.Join(notes, ", "))

	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  %.6f  %s\n", src.SimilarityScore, src.URL)
		}
	}

	return nil
}
