package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ListDocumentsResponse represents the document list API response.
type ListDocumentsResponse struct {
	Items   []DocumentItem `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// DeleteDocumentResponse represents the document delete API response.
type DeleteDocumentResponse struct {
	DocumentID    string `json:"document_id"`
	RemovedChunks int    `json:"removed_chunks"`
}

// DocsCmd creates the docs command group.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage uploaded documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsDeleteCmd())
	cmd.AddCommand(docsReprocessCmd())
	cmd.AddCommand(docsDomainsCmd())

	return cmd
}

type docsListOptions struct {
	sessionID string
	domain    string
	status    string
	limit     int
	cursor    string
}

func docsListCmd() *cobra.Command {
	var opts docsListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsList(cmd, opts, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Filter by chat session")
	cmd.Flags().StringVarP(&opts.domain, "domain", "d", "", "Filter by domain (legal, medical, financial, technical, general)")
	cmd.Flags().StringVar(&opts.status, "status", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&opts.cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocsList(cmd *cobra.Command, opts docsListOptions, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/documents?limit=%d", opts.limit)
	if opts.sessionID != "" {
		path += "&session_id=" + opts.sessionID
	}
	if opts.domain != "" {
		path += "&domain=" + opts.domain
	}
	if opts.status != "" {
		path += "&status=" + opts.status
	}
	if opts.cursor != "" {
		path += "&cursor=" + opts.cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListDocumentsResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Found %d documents:\n\n", len(listResp.Items))
	for i, doc := range listResp.Items {
		fmt.Printf("%d. %s [%s]\n", i+1, doc.FileName, doc.Status)
		fmt.Printf("   Domain: %s, Type: %s, Size: %d bytes\n", doc.Domain, doc.FileType, doc.FileSize)
		if doc.ChunkCount > 0 {
			fmt.Printf("   Chunks: %d\n", doc.ChunkCount)
		}
		if doc.Error != "" {
			fmt.Printf("   Error: %s\n", doc.Error)
		}
		fmt.Printf("   Uploaded: %s\n", doc.UploadedAt)
		fmt.Printf("   ID: %s\n", doc.ID)
		if i < len(listResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

func docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsGet(cmd, args[0], outputJSON)
		},
	}
}

func runDocsGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + id)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var doc DocumentItem
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s [%s]\n", doc.FileName, doc.Status)
	fmt.Printf("Domain: %s\n", doc.Domain)
	fmt.Printf("Type: %s, Size: %d bytes\n", doc.FileType, doc.FileSize)
	fmt.Printf("Chunks: %d\n", doc.ChunkCount)
	if doc.SessionID != "" {
		fmt.Printf("Session: %s\n", doc.SessionID)
	}
	if doc.Error != "" {
		fmt.Printf("Error: %s\n", doc.Error)
	}
	fmt.Printf("Uploaded: %s\n", doc.UploadedAt)
	if doc.ProcessedAt != "" {
		fmt.Printf("Processed: %s\n", doc.ProcessedAt)
	}
	fmt.Printf("ID: %s\n", doc.ID)

	return nil
}

func docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsDelete(cmd, args[0], outputJSON)
		},
	}
}

func runDocsDelete(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Delete("/documents/" + id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	var deleted DeleteDocumentResponse
	if err := json.Unmarshal(resp.Data, &deleted); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(deleted, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Deleted document %s (%d chunks removed)\n", deleted.DocumentID, deleted.RemovedChunks)
	return nil
}

func docsReprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <id>",
		Short: "Queue a document for re-extraction and re-indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsReprocess(cmd, args[0], outputJSON)
		},
	}
}

func runDocsReprocess(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/documents/"+id+"/reprocess", nil)
	if err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}

	var doc DocumentItem
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Queued %s for reprocessing (status: %s)\n", doc.FileName, doc.Status)
	return nil
}

func docsDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List supported document domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsDomains(cmd, outputJSON)
		},
	}
}

func runDocsDomains(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/domains")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var domainsResp struct {
		Domains []string `json:"domains"`
	}
	if err := json.Unmarshal(resp.Data, &domainsResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(domainsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, d := range domainsResp.Domains {
		fmt.Println(d)
	}
	return nil
}
