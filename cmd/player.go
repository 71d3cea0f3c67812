package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/report"
	"github.com/pable/clutchmetrics/internal/storage"
)

var (
	playerRun string
	playerAll bool
)

// playerCmd shows one player's clutch rows and efficiency for a run, or across every stored run.
var playerCmd = &cobra.Command{
	Use:   "player <player-id>",
	Short: "Show one player's clutch value and efficiency",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlayer,
}

func init() {
	playerCmd.Flags().StringVar(&playerRun, "run", "", "run ID prefix (default: latest run)")
	playerCmd.Flags().BoolVar(&playerAll, "all", false, "show the player's rows across every stored run")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid player ID %q: %w", args[0], err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	if playerAll {
		return printPlayerHistory(db, id)
	}
	return printPlayerRun(db, id, playerRun)
}

// printPlayerRun prints one player's rows in the run matching runPrefix, or the latest run.
func printPlayerRun(db *storage.DB, id int64, runPrefix string) error {
	var run *model.RunSummary
	var err error
	if runPrefix != "" {
		run, err = db.GetRunByPrefix(runPrefix)
	} else {
		run, err = db.LatestRun()
	}
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		fmt.Fprintln(os.Stderr, "No matching run stored.")
		return nil
	}

	clutch, err := db.GetClutchRecords(run.RunID, storage.ClutchFilter{AnyPhase: true, PlayerID: id})
	if err != nil {
		return fmt.Errorf("get clutch records: %w", err)
	}
	eff, err := db.GetEfficiencyRecords(run.RunID, id)
	if err != nil {
		return fmt.Errorf("get efficiency records: %w", err)
	}
	if len(clutch) == 0 && len(eff) == 0 {
		fmt.Fprintf(os.Stderr, "No data found for player %d in run %s\n", id, run.RunID[:8])
		return nil
	}

	report.PrintRunSummary(os.Stdout, *run)
	report.PrintSection(os.Stdout, "Clutch Value")
	report.PrintClutchLeaderboard(os.Stdout, clutch, id)
	report.PrintSection(os.Stdout, "Efficiency")
	report.PrintEfficiencyTable(os.Stdout, eff, 0)
	return nil
}

func printPlayerHistory(db *storage.DB, id int64) error {
	history, err := db.GetPlayerHistory(id)
	if err != nil {
		return fmt.Errorf("get player history: %w", err)
	}
	if len(history) == 0 {
		fmt.Fprintf(os.Stderr, "No data found for player %d\n", id)
		return nil
	}

	report.PrintSection(os.Stdout, fmt.Sprintf("%s: clutch value by run", history[0].PlayerName))
	t := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	t.Header("RUN", "CREATED", "PHASE", "RANK", "EWPA", "ADJUSTED", "EVENTS")
	for _, h := range history {
		t.Append(
			h.RunID[:8],
			h.CreatedAt,
			h.Phase.String(),
			fmt.Sprintf("%d", h.Rank),
			fmt.Sprintf("%+.4f", h.TotalValue),
			fmt.Sprintf("%+.4f", h.AdjustedValue),
			fmt.Sprintf("%d", h.Contributions),
		)
	}
	t.Render()
	return nil
}
