package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
)

var (
	generateModel  string
	generateStream bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate text with a registered model",
	Long: `Send a prompt to one model and print the response with token and cost details.

Examples:
  modelarena generate "Explain goroutines in one paragraph" --model gemini-2.0-flash
  modelarena generate "Write a haiku about Go" --model gpt-4o-mini --stream`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Model id (required)")
	generateCmd.Flags().BoolVar(&generateStream, "stream", false, "Stream the response as it is generated")
	generateCmd.MarkFlagRequired("model")
	RootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c := newClient()
	prompt := args[0]

	if generateStream {
		if err := c.GenerateStream(context.Background(), generateModel, prompt, os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		return nil
	}

	result, err := c.Generate(context.Background(), generateModel, prompt)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(result)
	}

	fmt.Println(result.Response)
	fmt.Println()
	format.Table(
		[]string{"Model", "Tokens", "Cost", "Latency"},
		[][]string{{
			result.Model,
			fmt.Sprintf("%d", result.Tokens),
			format.Cost(result.Cost),
			fmt.Sprintf("%.2fs", result.LatencySeconds),
		}},
	)
	return nil
}
