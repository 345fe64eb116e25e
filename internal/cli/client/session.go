package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SessionItem represents a chat session in API responses.
type SessionItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserID    string `json:"user_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListSessionsResponse represents the session list API response.
type ListSessionsResponse struct {
	Items   []SessionItem `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

// MessageItem represents a chat message in API responses.
type MessageItem struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Sources   []SourceItem `json:"sources,omitempty"`
	CreatedAt string       `json:"created_at"`
}

// SessionCmd creates the session command group.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage chat sessions",
	}

	cmd.AddCommand(sessionNewCmd())
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionGetCmd())
	cmd.AddCommand(sessionDeleteCmd())
	cmd.AddCommand(sessionMessagesCmd())
	cmd.AddCommand(sessionSuggestionsCmd())

	return cmd
}

func sessionNewCmd() *cobra.Command {
	var name string
	var userID string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionNew(cmd, name, userID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Session name (default: New chat)")
	cmd.Flags().StringVar(&userID, "user", "", "Owner identifier to record on the session")

	return cmd
}

func runSessionNew(cmd *cobra.Command, name, userID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/sessions", map[string]string{"name": name, "user_id": userID})
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	var session SessionItem
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Created session '%s'\n", session.Name)
	fmt.Printf("ID: %s\n", session.ID)
	return nil
}

func sessionListCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runSessionList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/sessions?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp ListSessionsResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("Found %d sessions:\n\n", len(listResp.Items))
	for i, session := range listResp.Items {
		fmt.Printf("%d. %s\n", i+1, session.Name)
		fmt.Printf("   Created: %s\n", session.CreatedAt)
		fmt.Printf("   ID: %s\n", session.ID)
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

func sessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionGet(cmd, args[0], outputJSON)
		},
	}
}

func runSessionGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/sessions/" + id)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var session SessionItem
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%s\n", session.Name)
	if session.UserID != "" {
		fmt.Printf("User: %s\n", session.UserID)
	}
	fmt.Printf("Created: %s\n", session.CreatedAt)
	fmt.Printf("ID: %s\n", session.ID)
	return nil
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionDelete(cmd, args[0], outputJSON)
		},
	}
}

func runSessionDelete(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/sessions/" + id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if outputJSON {
		data, _ := json.MarshalIndent(map[string]string{"id": id}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Deleted session %s\n", id)
	return nil
}

func sessionMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <id>",
		Short: "Show the message history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionMessages(cmd, args[0], outputJSON)
		},
	}
}

func runSessionMessages(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/sessions/" + id + "/messages")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var messagesResp struct {
		Items []MessageItem `json:"items"`
	}
	if err := json.Unmarshal(resp.Data, &messagesResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(messagesResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(messagesResp.Items) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}

	for i, msg := range messagesResp.Items {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
		if len(msg.Sources) > 0 {
			fmt.Printf("    Sources: %s\n", formatSourceNames(msg.Sources))
		}
		if i < len(messagesResp.Items)-1 {
			fmt.Println()
		}
	}
	return nil
}

// SuggestionsResponse represents the chat suggestions API response.
type SuggestionsResponse struct {
	Domain      string   `json:"domain"`
	Suggestions []string `json:"suggestions"`
}

func sessionSuggestionsCmd() *cobra.Command {
	var docDomain string

	cmd := &cobra.Command{
		Use:   "suggestions <id>",
		Short: "Show suggested questions for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionSuggestions(cmd, args[0], docDomain, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&docDomain, "domain", "d", "", "Document domain (legal, medical, financial, technical, general)")

	return cmd
}

func runSessionSuggestions(cmd *cobra.Command, id, docDomain string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := "/sessions/" + id + "/suggestions"
	if docDomain != "" {
		path += "?domain=" + docDomain
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var suggestionsResp SuggestionsResponse
	if err := json.Unmarshal(resp.Data, &suggestionsResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(suggestionsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Suggested questions (%s):\n", suggestionsResp.Domain)
	for i, s := range suggestionsResp.Suggestions {
		fmt.Printf("%d. %s\n", i+1, s)
	}
	return nil
}

func formatSourceNames(sources []SourceItem) string {
	names := make([]string, 0, len(sources))
	seen := make(map[string]bool)
	for _, s := range sources {
		if seen[s.DocumentName] {
			continue
		}
		seen[s.DocumentName] = true
		names = append(names, s.DocumentName)
	}
	return strings.Join(names, ", ")
}
