package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DocumentItem represents a document in API responses.
type DocumentItem struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id,omitempty"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	Domain      string `json:"domain"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	Error       string `json:"error,omitempty"`
	UploadedAt  string `json:"uploaded_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var sessionID string
	var docDomain string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Long:  "Uploads a document for text extraction and indexing. Supported formats: PDF, DOCX, XLSX, TXT, MD, CSV.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args[0], sessionID, docDomain, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Attach the document to a chat session")
	cmd.Flags().StringVarP(&docDomain, "domain", "d", "", "Document domain (general|legal|medical|technical|financial)")

	return cmd
}

func runUpload(cmd *cobra.Command, filePath, sessionID, docDomain string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.UploadDocument(filePath, sessionID, docDomain)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
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

	fmt.Printf("Uploaded %s (%s, %d bytes)\n", doc.FileName, doc.FileType, doc.FileSize)
	fmt.Printf("Domain: %s\n", doc.Domain)
	fmt.Printf("Status: %s\n", doc.Status)
	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Println("Processing happens in the background; check progress with 'docchat docs get'.")

	return nil
}
