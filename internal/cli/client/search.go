package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SourceItem represents a retrieval hit in API responses.
type SourceItem struct {
	ChunkText    string  `json:"chunk_text"`
	Score        float32 `json:"score"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
}

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SourceItem `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var docDomain string
	var documentIDs []string
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long:  "Runs a semantic similarity search over indexed document chunks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], docDomain, documentIDs, topK, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&docDomain, "domain", "d", "", "Restrict to a document domain")
	cmd.Flags().StringSliceVar(&documentIDs, "doc", nil, "Restrict to specific document IDs (repeatable)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default: server setting)")

	return cmd
}

func runSearch(cmd *cobra.Command, query, docDomain string, documentIDs []string, topK int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:       query,
		TopK:        topK,
		Domain:      docDomain,
		DocumentIDs: documentIDs,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (chunk %d, score %.2f)\n", i+1, result.DocumentName, result.ChunkIndex, result.Score)
		text := result.ChunkText
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		fmt.Printf("   %s\n", text)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
