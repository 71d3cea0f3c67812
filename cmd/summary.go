package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/storage"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all runs stored in the database:
run count, date range, players seen, rows scored, and a per-phase breakdown
of the latest run.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ov, err := db.GetDBOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalRuns == 0 {
		fmt.Fprintln(os.Stdout, "No runs stored yet. Run 'clutchmetrics parse <pbp.csv>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Runs stored   : %d\n", ov.TotalRuns)
	fmt.Fprintf(os.Stdout, "  Date range    : %s → %s\n", ov.EarliestRun, ov.LatestRun)
	fmt.Fprintf(os.Stdout, "  Players seen  : %d\n", ov.UniquePlayers)
	fmt.Fprintf(os.Stdout, "  Rows read     : %d\n", ov.TotalRowsRead)
	fmt.Fprintf(os.Stdout, "  Rows kept     : %d\n", ov.TotalKept)

	latest, err := db.LatestRun()
	if err != nil {
		return fmt.Errorf("get latest run: %w", err)
	}
	if latest == nil {
		return nil
	}
	phases, err := db.GetPhaseStats(latest.RunID)
	if err != nil {
		return fmt.Errorf("get phase stats: %w", err)
	}

	fmt.Fprintf(os.Stdout, "\n--- Phases (run %s) ---\n\n", latest.RunID[:8])
	pt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	pt.Header("PHASE", "PLAYERS", "TOTAL ADJ", "LEADER", "LEADER ADJ")
	for _, p := range phases {
		pt.Append(
			p.Phase.String(),
			fmt.Sprintf("%d", p.Players),
			fmt.Sprintf("%+.4f", p.TotalValue),
			p.TopPlayer,
			fmt.Sprintf("%+.4f", p.TopAdjusted),
		)
	}
	pt.Render()

	tags, err := db.GetTagCounts(latest.RunID)
	if err != nil {
		return fmt.Errorf("get tag counts: %w", err)
	}
	// Tag breakdown only shown when the run classified anything beyond Other.
	if len(tags) > 1 {
		fmt.Fprintf(os.Stdout, "\n--- Top Event Tags ---\n\n")
		tt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
			Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
			Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
		}))
		tt.Header("TAG", "EVENTS")
		for i, t := range tags {
			if i == 10 {
				break
			}
			tt.Append(string(t.Tag), fmt.Sprintf("%d", t.Count))
		}
		tt.Render()
	}
	return nil
}
