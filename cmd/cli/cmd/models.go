package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelarena/modelarena/cmd/cli/format"
)

var modelsCmd = &cobra.Command{
	Use:   "models [model-id]",
	Short: "List registered models, or show one model's provider and pricing",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

func init() {
	RootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return runModelInfo(args[0])
	}

	ids, err := newClient().ListModels(context.Background())
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(map[string]any{"models": ids, "count": len(ids)})
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id})
	}
	format.Table([]string{"Model"}, rows)
	return nil
}

func runModelInfo(id string) error {
	info, err := newClient().ModelInfo(context.Background(), id)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(info)
	}

	fmt.Printf("Model:    %s\n", info.ModelID)
	fmt.Printf("Provider: %s\n", info.Provider)
	fmt.Printf("Pricing:  %s in / %s out per 1K tokens\n",
		format.Cost(info.Pricing.InputPer1K), format.Cost(info.Pricing.OutputPer1K))
	return nil
}
