package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
	"github.com/modelarena/modelarena/internal/database"
)

var (
	metricsModel    string
	costsDays       int
	budgetThreshold float64
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show usage metrics per model",
	Args:  cobra.NoArgs,
	RunE:  runMetrics,
}

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show cumulative spend per model",
	Args:  cobra.NoArgs,
	RunE:  runCosts,
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Check total spend against a budget threshold",
	Args:  cobra.NoArgs,
	RunE:  runBudget,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsModel, "model", "", "Scope to one model id")
	costsCmd.Flags().IntVar(&costsDays, "days", 0, "Show a per-day rollup for the last N days instead of per-model totals")
	budgetCmd.Flags().Float64Var(&budgetThreshold, "threshold", 0, "Budget threshold in dollars (required)")
	budgetCmd.MarkFlagRequired("threshold")
	RootCmd.AddCommand(metricsCmd, costsCmd, budgetCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := context.Background()

	var all []database.ModelMetrics
	if metricsModel != "" {
		m, err := c.ModelMetrics(ctx, metricsModel)
		if err != nil {
			return err
		}
		all = []database.ModelMetrics{*m}
	} else {
		var err error
		all, err = c.AllMetrics(ctx)
		if err != nil {
			return err
		}
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(all)
	}

	rows := make([][]string, 0, len(all))
	for _, m := range all {
		rows = append(rows, []string{
			m.ModelID,
			fmt.Sprintf("%d", m.TotalRequests),
			fmt.Sprintf("%.2fs", m.AvgLatencySeconds),
			fmt.Sprintf("%.0f", m.AvgTokens),
			fmt.Sprintf("%.1f%%", m.SuccessRate),
		})
	}
	format.Table([]string{"Model", "Requests", "Avg Latency", "Avg Tokens", "Success Rate"}, rows)
	return nil
}

func runCosts(cmd *cobra.Command, args []string) error {
	if costsDays > 0 {
		return runDailyCosts(costsDays)
	}

	costs, err := newClient().Costs(context.Background())
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(costs)
	}

	rows := make([][]string, 0, len(costs.Models))
	for _, c := range costs.Models {
		rows = append(rows, []string{
			c.ModelID,
			fmt.Sprintf("%d", c.TotalRequests),
			fmt.Sprintf("%d", c.TotalTokens),
			format.Cost(c.TotalCost),
		})
	}
	format.Table([]string{"Model", "Requests", "Tokens", "Cost"}, rows)
	fmt.Printf("\nTotal: %s\n", format.Cost(costs.TotalCost))
	return nil
}

func runDailyCosts(days int) error {
	daily, err := newClient().DailyCosts(context.Background(), days)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(daily)
	}

	rows := make([][]string, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, []string{
			d.Day,
			fmt.Sprintf("%d", d.TotalRequests),
			fmt.Sprintf("%d", d.TotalTokens),
			format.Cost(d.TotalCost),
		})
	}
	format.Table([]string{"Day", "Requests", "Tokens", "Cost"}, rows)
	return nil
}

func runBudget(cmd *cobra.Command, args []string) error {
	status, err := newClient().Budget(context.Background(), budgetThreshold)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(status)
	}

	fmt.Printf("Spend:     %s\n", format.Cost(status.TotalCost))
	fmt.Printf("Threshold: %s\n", format.Cost(status.Threshold))
	if status.Alert {
		fmt.Println("ALERT: budget exceeded")
	} else {
		fmt.Println("Within budget")
	}
	return nil
}
