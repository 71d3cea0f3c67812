package storage

import (
	"fmt"

	"github.com/pable/clutchmetrics/internal/model"
)

// RunData is everything stored for one run.
type RunData struct {
	Run        model.RunSummary
	Clutch     []model.PlayerClutchRecord
	Efficiency []model.PlayerEfficiencyRecord
	Tags       []model.TagCount
}

// LoadRun loads a run and all of its records by ID prefix. It returns nil if no run matches.
func (db *DB) LoadRun(prefix string) (*RunData, error) {
	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return nil, nil
	}

	data := &RunData{Run: *run}
	if data.Clutch, err = db.GetClutchRecords(run.RunID, ClutchFilter{AnyPhase: true}); err != nil {
		return nil, fmt.Errorf("get clutch records: %w", err)
	}
	if data.Efficiency, err = db.GetEfficiencyRecords(run.RunID, 0); err != nil {
		return nil, fmt.Errorf("get efficiency records: %w", err)
	}
	if data.Tags, err = db.GetTagCounts(run.RunID); err != nil {
		return nil, fmt.Errorf("get tag counts: %w", err)
	}
	return data, nil
}

// PlayerRunRecord is one leaderboard row of a player together with the run it came from.
type PlayerRunRecord struct {
	RunID     string
	Source    string
	CreatedAt string
	model.PlayerClutchRecord
}

// GetPlayerHistory returns a player's leaderboard rows across every stored run, newest run first.
func (db *DB) GetPlayerHistory(playerID int64) ([]PlayerRunRecord, error) {
	rows, err := db.conn.Query(`
		SELECT r.run_id, r.source, r.created_at,
			c.player_id, c.player_name, c.phase, c.total_value, c.adjusted_value, c.contributions, c.rank
		FROM clutch_records c
		JOIN runs r ON r.run_id = c.run_id
		WHERE c.player_id = ?
		ORDER BY r.created_at DESC, c.adjusted_value DESC`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerRunRecord
	for rows.Next() {
		var pr PlayerRunRecord
		var phase string
		if err := rows.Scan(&pr.RunID, &pr.Source, &pr.CreatedAt,
			&pr.PlayerID, &pr.PlayerName, &phase, &pr.TotalValue, &pr.AdjustedValue,
			&pr.Contributions, &pr.Rank); err != nil {
			return nil, err
		}
		pr.Phase = model.ParsePhase(phase)
		out = append(out, pr)
	}
	return out, rows.Err()
}
