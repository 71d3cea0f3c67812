package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored runs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	return printRuns(db)
}

func printRuns(db *storage.DB) error {
	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Run 'clutchmetrics parse <pbp.csv>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-12s  %8s  %8s  %7s  %s\n",
		"RUN", "CREATED", "INPUT", "ROWS", "KEPT", "PLAYERS", "SOURCE")
	fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-12s  %8s  %8s  %7s  %s\n",
		"────────", "────────────────────", "────────────", "────────", "────────", "───────", "──────")
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-12s  %8d  %8d  %7d  %s\n",
			r.RunID[:8], r.CreatedAt, r.InputHash[:12], r.RowsRead, r.RowsKept, r.ClutchRecords, r.Source)
	}
	return nil
}
