package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/logger"
	"github.com/pable/clutchmetrics/internal/metrics"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/parser"
	"github.com/pable/clutchmetrics/internal/pipeline"
	"github.com/pable/clutchmetrics/internal/report"
	"github.com/pable/clutchmetrics/internal/storage"
)

var (
	parseTop        int
	parseForce      bool
	parseMetricsOut string
	parsePlayer     int64
)

var parseCmd = &cobra.Command{
	Use:   "parse <pbp.csv|dir|pbp.csv.zst>",
	Short: "Score play-by-play CSV data and store the results",
	Long: `Load a play-by-play CSV file (or every *.csv / *.csv.zst file in a directory),
score it and store the run.

If the same input was already scored with the same scoring parameters, the stored
run is shown instead. Use --force to recompute.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().IntVar(&parseTop, "top", 0, "rows per leaderboard (default: leaderboard_limit)")
	parseCmd.Flags().BoolVar(&parseForce, "force", false, "recompute even if a stored run matches")
	parseCmd.Flags().StringVar(&parseMetricsOut, "metrics-out", "", "write pipeline metrics to this Prometheus textfile")
	parseCmd.Flags().Int64Var(&parsePlayer, "player", 0, "focus player ID")
}

func runParse(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	log := logger.Named("parse")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(os.Stdout, "Loading %s...\n", inputPath)
	in, err := parser.Load(inputPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	log.Debug(cmd.Context(), "input loaded",
		logger.Int("files", len(in.Files)),
		logger.Int("rows", len(in.Events)),
		logger.String("hash", in.Hash[:12]))

	cfgHash := cfg.Fingerprint()
	if !parseForce {
		existing, err := db.FindRun(in.Hash, cfgHash)
		if err != nil {
			return fmt.Errorf("check run: %w", err)
		}
		if existing != nil {
			fmt.Fprintf(os.Stdout, "Input %s already scored as run %s, showing cached results.\n",
				in.Hash[:12], existing.RunID[:8])
			return showRun(db, existing, showOptions{top: topOrDefault(parseTop), anyPhase: true, player: parsePlayer})
		}
	}

	rec := metrics.NewRecorder()
	opts := pipeline.OptionsFromConfig(cfg)
	opts.Recorder = rec
	opts.Logger = logger.Named("pipeline")

	res, err := pipeline.Run(cmd.Context(), in.Events, opts)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	run := model.RunSummary{
		RunID:             uuid.NewString(),
		InputHash:         in.Hash,
		ConfigHash:        cfgHash,
		Source:            inputPath,
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
		RowsRead:          res.Stats.RowsRead,
		RowsKept:          res.Stats.RowsKept,
		ClockFailures:     res.Stats.ClockFailures,
		MarginFailures:    res.Stats.MarginFailures,
		Contributions:     res.Stats.Contributions,
		ClutchRecords:     len(res.Clutch),
		EfficiencyRecords: len(res.Efficiency),
	}
	if err := db.SaveRun(run, res.Clutch, res.Efficiency, res.Stats.Tags); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if parseMetricsOut != "" {
		if err := rec.WriteTextfile(parseMetricsOut); err != nil {
			return err
		}
	}

	top := topOrDefault(parseTop)
	report.PrintRunSummary(os.Stdout, run)
	printLeaderboards(res.Clutch, top, parsePlayer)
	report.PrintSection(os.Stdout, "Clutch Score (all phases)")
	report.PrintPlayerTotals(os.Stdout, res.Totals, top)
	report.PrintSection(os.Stdout, "Efficiency")
	report.PrintEfficiencyTable(os.Stdout, res.Efficiency, top)
	return nil
}

func topOrDefault(top int) int {
	if top > 0 {
		return top
	}
	return cfg.LeaderboardLimit
}

// printLeaderboards prints one ranked section per phase, in season order.
func printLeaderboards(recs []model.PlayerClutchRecord, top int, focus int64) {
	byPhase := make(map[model.SeasonPhase][]model.PlayerClutchRecord)
	for _, r := range recs {
		byPhase[r.Phase] = append(byPhase[r.Phase], r)
	}
	for _, phase := range model.AllPhases() {
		rows := byPhase[phase]
		if len(rows) == 0 {
			continue
		}
		if top > 0 && len(rows) > top {
			rows = rows[:top]
		}
		report.PrintSection(os.Stdout, "Clutch Leaderboard: "+phase.String())
		report.PrintClutchLeaderboard(os.Stdout, rows, focus)
	}
}
