package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
)

var (
	workflowTemplate string
	workflowModel    string
	workflowLimit    int
)

var workflowCmd = &cobra.Command{
	Use:   "workflow <input>",
	Short: "Run a multi-step workflow template",
	Long: `Execute a built-in workflow (content_generation, translation, analysis)
where each step's output feeds the next step's prompt.

Examples:
  modelarena workflow "the history of container runtimes" --template content_generation --model gemini-2.0-flash
  modelarena workflow "some text to analyse" --template analysis --model gpt-4o-mini -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent workflow runs",
	Args:  cobra.NoArgs,
	RunE:  runWorkflowList,
}

func init() {
	workflowCmd.Flags().StringVar(&workflowTemplate, "template", "", "Workflow template name (required)")
	workflowCmd.Flags().StringVar(&workflowModel, "model", "", "Model id (required)")
	workflowCmd.MarkFlagRequired("template")
	workflowCmd.MarkFlagRequired("model")
	workflowListCmd.Flags().IntVar(&workflowLimit, "limit", 10, "Number of runs to show")
	workflowCmd.AddCommand(workflowListCmd)
	RootCmd.AddCommand(workflowCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	run, err := newClient().RunWorkflow(context.Background(), workflowTemplate, workflowModel, args[0])
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(run)
	}

	rows := make([][]string, 0, len(run.Steps))
	for _, s := range run.Steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.Step),
			s.Operation,
			s.ModelID,
			fmt.Sprintf("%d", s.Tokens),
			format.Cost(s.Cost),
			fmt.Sprintf("%.2fs", s.LatencySeconds),
		})
	}
	format.Table([]string{"Step", "Operation", "Model", "Tokens", "Cost", "Latency"}, rows)
	fmt.Printf("\nTotal: %d tokens, %s\n\n", run.TotalTokens, format.Cost(run.TotalCost))
	fmt.Println(run.FinalOutput)
	return nil
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	runs, err := newClient().ListWorkflows(context.Background(), workflowLimit)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(runs)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.WorkflowID,
			fmt.Sprintf("%d", len(r.Steps)),
			fmt.Sprintf("%d", r.TotalTokens),
			format.Cost(r.TotalCost),
			fmt.Sprintf("%t", r.Success),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	format.Table([]string{"Workflow", "Steps", "Tokens", "Cost", "Success", "Created"}, rows)
	return nil
}
