package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/report"
	"github.com/pable/clutchmetrics/internal/weights"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the eWPA weight of every event tag",
	Long: `Print the expected win-probability added per event tag, grouped by family.
Overrides from the weights section of the config file are applied.`,
	Args: cobra.NoArgs,
	RunE: runWeights,
}

func runWeights(cmd *cobra.Command, args []string) error {
	table := weights.New(weights.WithOverrides(cfg.Weights))
	report.PrintSection(os.Stdout, "eWPA Weights")
	report.PrintWeightTable(os.Stdout, table.Entries())
	return nil
}
