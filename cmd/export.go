package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/aggregator"
	"github.com/pable/clutchmetrics/internal/storage"
)

var exportOut string

// runExport is the top-level JSON document written by the export command.
type runExport struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source"`
	InputHash   string             `json:"input_hash"`
	ConfigHash  string             `json:"config_hash"`
	CreatedAt   string             `json:"created_at"`
	GeneratedAt string             `json:"generated_at"`
	RowsRead    int                `json:"rows_read"`
	RowsKept    int                `json:"rows_kept"`
	Leaderboard []clutchExport     `json:"leaderboard"`
	Totals      []totalExport      `json:"totals"`
	Efficiency  []efficiencyExport `json:"efficiency"`
	Tags        map[string]int     `json:"tags"`
}

type clutchExport struct {
	Rank          int     `json:"rank"`
	PlayerID      int64   `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Phase         string  `json:"phase"`
	TotalValue    float64 `json:"total_value"`
	AdjustedValue float64 `json:"adjusted_value"`
	Contributions int     `json:"contributions"`
}

type totalExport struct {
	PlayerID      int64   `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	AdjustedValue float64 `json:"adjusted_value"`
	Phases        int     `json:"phases"`
}

// efficiencyExport carries the raw counts plus the derived rates, so consumers
// do not need to reimplement the formulas.
type efficiencyExport struct {
	PlayerID        int64   `json:"player_id"`
	PlayerName      string  `json:"player_name"`
	Phase           string  `json:"phase"`
	TeamID          int64   `json:"team_id"`
	Points          int     `json:"points"`
	FGA             int     `json:"fga"`
	FTA             int     `json:"fta"`
	Turnovers       int     `json:"turnovers"`
	Wins            int     `json:"wins"`
	GamesObserved   int     `json:"games_observed"`
	UsageRate       float64 `json:"usage_rate"`
	TrueShootingPct float64 `json:"true_shooting_pct"`
	WinPct          float64 `json:"win_pct"`
}

var exportCmd = &cobra.Command{
	Use:   "export <run-prefix>",
	Short: "Export a stored run as JSON",
	Long: `Write a stored run's leaderboards, all-phase totals, efficiency rows (with
usage rate, true shooting and win percentage) and tag counts as one JSON document.

Example:
  clutchmetrics export 3f2a --out finals.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExportCmd,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
}

func runExportCmd(_ *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	data, err := db.LoadRun(args[0])
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if data == nil {
		return fmt.Errorf("no run found with ID prefix %q", args[0])
	}

	out := buildExport(data, time.Now().UTC())
	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	if exportOut == "" {
		fmt.Println(string(buf))
		return nil
	}
	if err := os.WriteFile(exportOut, append(buf, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOut)
	return nil
}

func buildExport(data *storage.RunData, now time.Time) runExport {
	run := data.Run
	out := runExport{
		RunID:       run.RunID,
		Source:      run.Source,
		InputHash:   run.InputHash,
		ConfigHash:  run.ConfigHash,
		CreatedAt:   run.CreatedAt,
		GeneratedAt: now.Format(time.RFC3339),
		RowsRead:    run.RowsRead,
		RowsKept:    run.RowsKept,
		Leaderboard: make([]clutchExport, 0, len(data.Clutch)),
		Efficiency:  make([]efficiencyExport, 0, len(data.Efficiency)),
		Tags:        make(map[string]int, len(data.Tags)),
	}
	for _, r := range data.Clutch {
		out.Leaderboard = append(out.Leaderboard, clutchExport{
			Rank:          r.Rank,
			PlayerID:      r.PlayerID,
			PlayerName:    r.PlayerName,
			Phase:         r.Phase.Slug(),
			TotalValue:    r.TotalValue,
			AdjustedValue: r.AdjustedValue,
			Contributions: r.Contributions,
		})
	}
	totals := aggregator.PlayerTotals(data.Clutch)
	out.Totals = make([]totalExport, 0, len(totals))
	for _, t := range totals {
		out.Totals = append(out.Totals, totalExport{
			PlayerID:      t.PlayerID,
			PlayerName:    t.PlayerName,
			AdjustedValue: t.AdjustedValue,
			Phases:        t.Phases,
		})
	}
	for i := range data.Efficiency {
		r := &data.Efficiency[i]
		out.Efficiency = append(out.Efficiency, efficiencyExport{
			PlayerID:        r.PlayerID,
			PlayerName:      r.PlayerName,
			Phase:           r.Phase.Slug(),
			TeamID:          r.TeamID,
			Points:          r.Points,
			FGA:             r.FGA,
			FTA:             r.FTA,
			Turnovers:       r.Turnovers,
			Wins:            r.Wins,
			GamesObserved:   r.GamesObserved,
			UsageRate:       roundTo2dp(r.UsageRate()),
			TrueShootingPct: roundTo2dp(r.TrueShootingPct()),
			WinPct:          roundTo2dp(r.WinPct()),
		})
	}
	for _, t := range data.Tags {
		out.Tags[string(t.Tag)] = t.Count
	}
	return out
}

func roundTo2dp(v float64) float64 {
	return math.Round(v*100) / 100
}
