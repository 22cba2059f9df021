package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/client"
	"github.com/modelarena/modelarena/cmd/cli/format"
)

var (
	apiURL       string
	outputFormat string
)

// RootCmd is the top-level CLI command.
var RootCmd = &cobra.Command{
	Use:   "modelarena",
	Short: "ModelArena CLI: generate, compare, and A/B test LLM models",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOrDefault("MODELARENA_API_URL", "http://localhost:8080"), "ModelArena API base URL")
	RootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json")
}

func newClient() *client.Client {
	return client.New(apiURL)
}

func getFormat() format.OutputFormat {
	if outputFormat == "json" {
		return format.FormatJSON
	}
	return format.FormatTable
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
