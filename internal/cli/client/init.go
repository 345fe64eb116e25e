package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	var apiURL string
	var clear bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure the docchat client",
		Long:  "Saves the API base URL to the user config file so it does not need to be passed on every command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiURL, clear, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL to save (default: http://localhost:8080)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Remove the saved configuration")

	return cmd
}

func runInit(apiURL string, clear, outputJSON bool) error {
	if clear {
		if err := DeleteGlobalConfig(); err != nil {
			return err
		}
		if outputJSON {
			data, _ := json.MarshalIndent(map[string]bool{"cleared": true}, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Println("Configuration cleared.")
		}
		return nil
	}

	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIURL: apiURL}); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if outputJSON {
		result := map[string]string{
			"api_url": apiURL,
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("API URL set to %s\n", apiURL)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}
