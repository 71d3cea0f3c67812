package storage

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/pable/clutchmetrics/internal/model"
)

const runColumns = `
	r.run_id, r.input_hash, r.config_hash, r.source, r.created_at,
	r.rows_read, r.rows_kept, r.clock_failures, r.margin_failures, r.contributions,
	(SELECT COUNT(1) FROM clutch_records c WHERE c.run_id = r.run_id),
	(SELECT COUNT(1) FROM efficiency_records e WHERE e.run_id = r.run_id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.RunSummary, error) {
	var r model.RunSummary
	err := s.Scan(&r.RunID, &r.InputHash, &r.ConfigHash, &r.Source, &r.CreatedAt,
		&r.RowsRead, &r.RowsKept, &r.ClockFailures, &r.MarginFailures, &r.Contributions,
		&r.ClutchRecords, &r.EfficiencyRecords)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// queryRun returns the first matching run, or nil if none matches.
func (db *DB) queryRun(where string, args ...any) (*model.RunSummary, error) {
	row := db.conn.QueryRow(`SELECT `+runColumns+` FROM runs r `+where+` LIMIT 1`, args...)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// FindRun returns the run scored from the given input with the given parameters, or nil.
func (db *DB) FindRun(inputHash, configHash string) (*model.RunSummary, error) {
	return db.queryRun(`WHERE r.input_hash = ? AND r.config_hash = ?`, inputHash, configHash)
}

// GetRunByPrefix finds the most recent run whose ID starts with the given prefix.
func (db *DB) GetRunByPrefix(prefix string) (*model.RunSummary, error) {
	return db.queryRun(`WHERE r.run_id LIKE ? ORDER BY r.created_at DESC`, prefix+"%")
}

// LatestRun returns the most recently stored run, or nil for an empty database.
func (db *DB) LatestRun() (*model.RunSummary, error) {
	return db.queryRun(`ORDER BY r.created_at DESC, r.rowid DESC`)
}

// ListRuns returns all stored runs, newest first.
func (db *DB) ListRuns() ([]model.RunSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + runColumns + ` FROM runs r ORDER BY r.created_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, all of its records.
func (db *DB) DeleteRun(runID string) error {
	_, err := db.conn.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	return err
}

// SaveRun stores a run with its leaderboard, efficiency rows and tag counts in one transaction.
// A run with the same input and config hashes is replaced.
func (db *DB) SaveRun(run model.RunSummary, clutch []model.PlayerClutchRecord, eff []model.PlayerEfficiencyRecord, tags map[model.Tag]int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM runs WHERE input_hash = ? AND config_hash = ?`, run.InputHash, run.ConfigHash); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO runs(run_id, input_hash, config_hash, source, created_at,
			rows_read, rows_kept, clock_failures, margin_failures, contributions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InputHash, run.ConfigHash, run.Source, run.CreatedAt,
		run.RowsRead, run.RowsKept, run.ClockFailures, run.MarginFailures, run.Contributions,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if err := insertClutchRecords(tx, run.RunID, clutch); err != nil {
		return err
	}
	if err := insertEfficiencyRecords(tx, run.RunID, eff); err != nil {
		return err
	}
	if err := insertTagCounts(tx, run.RunID, tags); err != nil {
		return err
	}
	return tx.Commit()
}

func insertClutchRecords(tx *sql.Tx, runID string, recs []model.PlayerClutchRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO clutch_records(
			run_id, player_id, player_name, phase,
			total_value, adjusted_value, contributions, rank
		) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err = stmt.Exec(runID, r.PlayerID, r.PlayerName, r.Phase.Slug(),
			r.TotalValue, r.AdjustedValue, r.Contributions, r.Rank)
		if err != nil {
			return fmt.Errorf("insert clutch_records for %d: %w", r.PlayerID, err)
		}
	}
	return nil
}

func insertEfficiencyRecords(tx *sql.Tx, runID string, recs []model.PlayerEfficiencyRecord) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO efficiency_records(
			run_id, player_id, player_name, phase, team_id, seq,
			points, fga, fta, turnovers, wins, games_observed,
			team_fga, team_fta, team_turnovers
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range recs {
		_, err = stmt.Exec(runID, r.PlayerID, r.PlayerName, r.Phase.Slug(), r.TeamID, i,
			r.Points, r.FGA, r.FTA, r.Turnovers, r.Wins, r.GamesObserved,
			r.TeamFGA, r.TeamFTA, r.TeamTurnovers)
		if err != nil {
			return fmt.Errorf("insert efficiency_records for %d: %w", r.PlayerID, err)
		}
	}
	return nil
}

func insertTagCounts(tx *sql.Tx, runID string, tags map[model.Tag]int) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tag_counts(run_id, tag, count) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for tag, n := range tags {
		if _, err := stmt.Exec(runID, string(tag), n); err != nil {
			return fmt.Errorf("insert tag_counts: %w", err)
		}
	}
	return nil
}

// ClutchFilter narrows GetClutchRecords.
type ClutchFilter struct {
	Phase    model.SeasonPhase
	AnyPhase bool  // ignore Phase
	PlayerID int64 // 0 = all players
	Limit    int   // 0 = no limit
}

// GetClutchRecords returns stored leaderboard rows ordered by adjusted value, then stored rank.
func (db *DB) GetClutchRecords(runID string, f ClutchFilter) ([]model.PlayerClutchRecord, error) {
	query := `
		SELECT player_id, player_name, phase, total_value, adjusted_value, contributions, rank
		FROM clutch_records WHERE run_id = ?`
	args := []any{runID}
	if !f.AnyPhase {
		query += ` AND phase = ?`
		args = append(args, f.Phase.Slug())
	}
	if f.PlayerID != 0 {
		query += ` AND player_id = ?`
		args = append(args, f.PlayerID)
	}
	query += ` ORDER BY adjusted_value DESC, rank ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerClutchRecord
	for rows.Next() {
		var r model.PlayerClutchRecord
		var phase string
		if err := rows.Scan(&r.PlayerID, &r.PlayerName, &phase,
			&r.TotalValue, &r.AdjustedValue, &r.Contributions, &r.Rank); err != nil {
			return nil, err
		}
		r.Phase = model.ParsePhase(phase)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetEfficiencyRecords returns efficiency rows in their original order. playerID 0 returns every player.
func (db *DB) GetEfficiencyRecords(runID string, playerID int64) ([]model.PlayerEfficiencyRecord, error) {
	rows, err := db.conn.Query(`
		SELECT player_id, player_name, phase, team_id,
			points, fga, fta, turnovers, wins, games_observed,
			team_fga, team_fta, team_turnovers
		FROM efficiency_records
		WHERE run_id = ? AND (? = 0 OR player_id = ?)
		ORDER BY seq`, runID, playerID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerEfficiencyRecord
	for rows.Next() {
		var r model.PlayerEfficiencyRecord
		var phase string
		if err := rows.Scan(&r.PlayerID, &r.PlayerName, &phase, &r.TeamID,
			&r.Points, &r.FGA, &r.FTA, &r.Turnovers, &r.Wins, &r.GamesObserved,
			&r.TeamFGA, &r.TeamFTA, &r.TeamTurnovers); err != nil {
			return nil, err
		}
		r.Phase = model.ParsePhase(phase)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTagCounts returns a run's label counts, most frequent first.
func (db *DB) GetTagCounts(runID string) ([]model.TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count FROM tag_counts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Tag]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		counts[model.Tag(tag)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.SortedTagCounts(counts), nil
}

// Overview is a database-wide summary for the summary command.
type Overview struct {
	TotalRuns     int
	EarliestRun   string
	LatestRun     string
	UniquePlayers int
	TotalRowsRead int
	TotalKept     int
}

// GetDBOverview summarizes every stored run.
func (db *DB) GetDBOverview() (*Overview, error) {
	var ov Overview
	var earliest, latest sql.NullString
	err := db.conn.QueryRow(`
		SELECT COUNT(1), MIN(created_at), MAX(created_at),
			COALESCE(SUM(rows_read), 0), COALESCE(SUM(rows_kept), 0)
		FROM runs`).Scan(&ov.TotalRuns, &earliest, &latest, &ov.TotalRowsRead, &ov.TotalKept)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	ov.EarliestRun, ov.LatestRun = earliest.String, latest.String

	if err := db.conn.QueryRow(`SELECT COUNT(DISTINCT player_id) FROM clutch_records`).Scan(&ov.UniquePlayers); err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	return &ov, nil
}

// PhaseStat summarizes one season phase of a run.
type PhaseStat struct {
	Phase       model.SeasonPhase
	Players     int
	TotalValue  float64
	TopPlayer   string
	TopAdjusted float64
}

// GetPhaseStats returns per-phase player counts and leaders for a run, in season order.
func (db *DB) GetPhaseStats(runID string) ([]PhaseStat, error) {
	rows, err := db.conn.Query(`
		SELECT phase, COUNT(1), SUM(adjusted_value),
			(SELECT player_name FROM clutch_records t
			 WHERE t.run_id = c.run_id AND t.phase = c.phase
			 ORDER BY adjusted_value DESC, rank ASC LIMIT 1),
			MAX(adjusted_value)
		FROM clutch_records c
		WHERE run_id = ?
		GROUP BY phase`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhaseStat
	for rows.Next() {
		var ps PhaseStat
		var phase string
		if err := rows.Scan(&phase, &ps.Players, &ps.TotalValue, &ps.TopPlayer, &ps.TopAdjusted); err != nil {
			return nil, err
		}
		ps.Phase = model.ParsePhase(phase)
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return phaseOrder(out[i].Phase) < phaseOrder(out[j].Phase) })
	return out, nil
}

func phaseOrder(p model.SeasonPhase) int {
	for i, q := range model.AllPhases() {
		if p == q {
			return i
		}
	}
	return len(model.AllPhases())
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch t := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(t)
			case float64:
				row[i] = fmt.Sprintf("%.4f", t)
			default:
				row[i] = fmt.Sprint(t)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}
