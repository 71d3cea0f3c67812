package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/aggregator"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/report"
	"github.com/pable/clutchmetrics/internal/storage"
)

var (
	showPhase    string
	showTop      int
	showPlayerID int64
	showTags     bool
)

var showCmd = &cobra.Command{
	Use:   "show <run-prefix>",
	Short: "Show a stored run by ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showPhase, "phase", "", "only this phase: regular_season, playoffs, finals or unknown")
	showCmd.Flags().IntVar(&showTop, "top", 0, "rows per leaderboard (default: leaderboard_limit)")
	showCmd.Flags().Int64Var(&showPlayerID, "player", 0, "highlight player ID")
	showCmd.Flags().BoolVar(&showTags, "tags", false, "also print event tag counts")
}

type showOptions struct {
	top      int
	anyPhase bool
	phase    model.SeasonPhase
	player   int64
	tags     bool
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	opts := showOptions{top: topOrDefault(showTop), anyPhase: true, player: showPlayerID, tags: showTags}
	if showPhase != "" {
		phase := model.ParsePhase(showPhase)
		if phase == model.PhaseUnknown && showPhase != model.PhaseUnknown.Slug() {
			return fmt.Errorf("unknown phase %q", showPhase)
		}
		opts.anyPhase = false
		opts.phase = phase
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		fmt.Fprintf(os.Stderr, "No run found with ID prefix %q\n", prefix)
		return nil
	}
	return showRun(db, run, opts)
}

// showRun prints a stored run: summary, leaderboards, totals and efficiency.
func showRun(db *storage.DB, run *model.RunSummary, opts showOptions) error {
	clutch, err := db.GetClutchRecords(run.RunID, storage.ClutchFilter{
		Phase:    opts.phase,
		AnyPhase: opts.anyPhase,
	})
	if err != nil {
		return fmt.Errorf("get clutch records: %w", err)
	}
	eff, err := db.GetEfficiencyRecords(run.RunID, 0)
	if err != nil {
		return fmt.Errorf("get efficiency records: %w", err)
	}

	report.PrintRunSummary(os.Stdout, *run)
	printLeaderboards(clutch, opts.top, opts.player)

	if opts.anyPhase {
		report.PrintSection(os.Stdout, "Clutch Score (all phases)")
		report.PrintPlayerTotals(os.Stdout, aggregator.PlayerTotals(clutch), opts.top)
	} else {
		filtered := eff[:0:0]
		for _, r := range eff {
			if r.Phase == opts.phase {
				filtered = append(filtered, r)
			}
		}
		eff = filtered
	}

	report.PrintSection(os.Stdout, "Efficiency")
	report.PrintEfficiencyTable(os.Stdout, eff, opts.top)

	if opts.tags {
		counts, err := db.GetTagCounts(run.RunID)
		if err != nil {
			return fmt.Errorf("get tag counts: %w", err)
		}
		report.PrintSection(os.Stdout, "Event Tags")
		report.PrintTagCounts(os.Stdout, counts)
	}
	return nil
}
