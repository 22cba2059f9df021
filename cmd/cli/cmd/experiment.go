package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
)

var (
	expModelA    string
	expModelB    string
	expUserID    string
	expPrompt    string
	expVariant   string
	expSuccess   bool
	expRating    int
	expHasRating bool
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Manage A/B experiments between two models",
}

var experimentCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an experiment between two model variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentCreate,
}

var experimentTestCmd = &cobra.Command{
	Use:   "test <experiment-id>",
	Short: "Route a user to their variant, optionally generating a response",
	Long: `Resolve the deterministic variant for a user. With --prompt, the variant's
model also generates a response.

Examples:
  modelarena experiment test abc123 --user user-42
  modelarena experiment test abc123 --user user-42 --prompt "Write a headline"`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentTest,
}

var experimentRecordCmd = &cobra.Command{
	Use:   "record <experiment-id>",
	Short: "Record a trial outcome for a variant",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentRecord,
}

var experimentStatsCmd = &cobra.Command{
	Use:   "stats <experiment-id>",
	Short: "Show conversion rates, ratings, and the winner",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentStats,
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments",
	Args:  cobra.NoArgs,
	RunE:  runExperimentList,
}

func init() {
	experimentCreateCmd.Flags().StringVar(&expModelA, "model-a", "", "Variant A model id (required)")
	experimentCreateCmd.Flags().StringVar(&expModelB, "model-b", "", "Variant B model id (required)")
	experimentCreateCmd.MarkFlagRequired("model-a")
	experimentCreateCmd.MarkFlagRequired("model-b")

	experimentTestCmd.Flags().StringVar(&expUserID, "user", "", "User id to route (required)")
	experimentTestCmd.Flags().StringVar(&expPrompt, "prompt", "", "Prompt to run through the assigned variant")
	experimentTestCmd.MarkFlagRequired("user")

	experimentRecordCmd.Flags().StringVar(&expVariant, "variant", "", "Variant the outcome belongs to: A or B (required)")
	experimentRecordCmd.Flags().BoolVar(&expSuccess, "success", false, "Whether the trial converted")
	experimentRecordCmd.Flags().IntVar(&expRating, "rating", 0, "Optional 1-5 rating")
	experimentRecordCmd.MarkFlagRequired("variant")

	experimentCmd.AddCommand(experimentCreateCmd, experimentTestCmd, experimentRecordCmd, experimentStatsCmd, experimentListCmd)
	RootCmd.AddCommand(experimentCmd)
}

func runExperimentCreate(cmd *cobra.Command, args []string) error {
	id, err := newClient().CreateExperiment(context.Background(), args[0], expModelA, expModelB)
	if err != nil {
		return err
	}
	if getFormat() == format.FormatJSON {
		return format.JSON(map[string]string{"experiment_id": id})
	}
	fmt.Printf("Created experiment %s (%s vs %s)\n", id, expModelA, expModelB)
	return nil
}

func runExperimentTest(cmd *cobra.Command, args []string) error {
	result, err := newClient().TestExperiment(context.Background(), args[0], expUserID, expPrompt)
	if err != nil {
		return err
	}
	if getFormat() == format.FormatJSON {
		return format.JSON(result)
	}
	fmt.Printf("Variant: %s\n", result.Variant)
	if result.Response != "" {
		fmt.Println(result.Response)
	}
	return nil
}

func runExperimentRecord(cmd *cobra.Command, args []string) error {
	var rating *int
	if cmd.Flags().Changed("rating") {
		rating = &expRating
	}
	if err := newClient().RecordTrial(context.Background(), args[0], expVariant, expSuccess, rating); err != nil {
		return err
	}
	fmt.Println("Recorded.")
	return nil
}

func runExperimentStats(cmd *cobra.Command, args []string) error {
	stats, err := newClient().GetStats(context.Background(), args[0])
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(stats)
	}

	format.Table(
		[]string{"Variant", "Model", "Trials", "Conversion", "Avg Rating"},
		[][]string{
			{"A", stats.VariantAModel, fmt.Sprintf("%d", stats.ATotal), fmt.Sprintf("%.1f%%", stats.AConversionRate), fmt.Sprintf("%.2f", stats.AAvgRating)},
			{"B", stats.VariantBModel, fmt.Sprintf("%d", stats.BTotal), fmt.Sprintf("%.1f%%", stats.BConversionRate), fmt.Sprintf("%.2f", stats.BAvgRating)},
		},
	)
	fmt.Printf("\nWinner: %s\n", format.StrPtr(stats.Winner))
	return nil
}

func runExperimentList(cmd *cobra.Command, args []string) error {
	exps, err := newClient().ListExperiments(context.Background())
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(exps)
	}

	rows := make([][]string, 0, len(exps))
	for _, e := range exps {
		rows = append(rows, []string{
			e.ID,
			e.Name,
			e.VariantAModel,
			e.VariantBModel,
			fmt.Sprintf("%d", e.ATotal+e.BTotal),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	format.Table([]string{"ID", "Name", "Model A", "Model B", "Trials", "Created"}, rows)
	return nil
}
