package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	SessionID   string   `json:"session_id"`
	Message     string   `json:"message"`
	Domain      string   `json:"domain,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Answer    string       `json:"answer"`
	Sources   []SourceItem `json:"sources"`
	Model     string       `json:"model,omitempty"`
	Fallback  bool         `json:"fallback,omitempty"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var sessionID string
	var docDomain string
	var documentIDs []string
	var topK int

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask a question about your documents",
		Long:  "Sends a question to a chat session. The answer is grounded in retrieved document excerpts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChat(cmd, sessionID, args[0], docDomain, documentIDs, topK, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Chat session ID (required)")
	cmd.Flags().StringVarP(&docDomain, "domain", "d", "", "Restrict retrieval to a document domain")
	cmd.Flags().StringSliceVar(&documentIDs, "doc", nil, "Restrict retrieval to specific document IDs (repeatable)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of excerpts to retrieve (default: server setting)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runChat(cmd *cobra.Command, sessionID, message, docDomain string, documentIDs []string, topK int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := ChatRequest{
		SessionID:   sessionID,
		Message:     message,
		Domain:      docDomain,
		DocumentIDs: documentIDs,
		TopK:        topK,
	}

	resp, err := api.Post("/chat", req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Data, &chatResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(chatResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(chatResp.Answer)

	if len(chatResp.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range chatResp.Sources {
			fmt.Printf("  [%d] %s (chunk %d, score %.2f)\n", i+1, src.DocumentName, src.ChunkIndex, src.Score)
		}
	}
	if chatResp.Fallback {
		fmt.Println("\nNote: the language model was unavailable; this is a fallback answer.")
	}

	return nil
}
