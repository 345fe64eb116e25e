package main

import (
	"fmt"
	"os"

	"github.com/clearsight-ai/docchat/internal/cli"
	"github.com/clearsight-ai/docchat/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "Docchat CLI - Chat with your documents",
		Long: `Docchat CLI uploads documents and asks questions grounded in their content.

Environment variables:
  DOCCHAT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.SessionCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.SearchCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
