package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
)

var (
	compareModels []string
	compareLimit  int
)

var compareCmd = &cobra.Command{
	Use:   "compare <prompt>",
	Short: "Run one prompt against several models",
	Long: `Send the same prompt to two or more models and show cost, latency, and
the winner (cheapest successful model, ties broken by latency).

Examples:
  modelarena compare "Summarize the CAP theorem" --model gemini-2.0-flash --model gpt-4o-mini
  modelarena compare "Name three Go proverbs" --model a --model b -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

var compareListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent comparisons",
	Args:  cobra.NoArgs,
	RunE:  runCompareList,
}

func init() {
	compareCmd.Flags().StringArrayVar(&compareModels, "model", nil, "Model id (repeat for each model, at least 2)")
	compareCmd.MarkFlagRequired("model")
	compareListCmd.Flags().IntVar(&compareLimit, "limit", 10, "Number of comparisons to show")
	compareCmd.AddCommand(compareListCmd)
	RootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	result, err := newClient().Compare(context.Background(), compareModels, args[0])
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(result)
	}

	rows := make([][]string, 0, len(result.Comparison.Results))
	for _, leg := range result.Comparison.Results {
		rows = append(rows, []string{
			leg.ModelID,
			fmt.Sprintf("%t", leg.Success),
			fmt.Sprintf("%d", leg.Tokens),
			format.Cost(leg.Cost),
			fmt.Sprintf("%.2fs", leg.LatencySeconds),
			format.Truncate(format.StrPtr(leg.Response), 60),
		})
	}
	format.Table([]string{"Model", "Success", "Tokens", "Cost", "Latency", "Response"}, rows)
	fmt.Printf("\nWinner: %s\n", format.StrPtr(result.Comparison.Winner))
	return nil
}

func runCompareList(cmd *cobra.Command, args []string) error {
	cmps, err := newClient().ListComparisons(context.Background(), compareLimit)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(cmps)
	}

	rows := make([][]string, 0, len(cmps))
	for _, c := range cmps {
		rows = append(rows, []string{
			format.Truncate(c.Prompt, 40),
			fmt.Sprintf("%d", len(c.Results)),
			format.StrPtr(c.Winner),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	format.Table([]string{"Prompt", "Models", "Winner", "Created"}, rows)
	return nil
}
