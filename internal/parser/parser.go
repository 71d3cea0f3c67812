// Package parser loads play-by-play rows from CSV files.
//
// Columns are located by header name, so column order is free and extra
// columns are ignored. Files ending in .zst are zstd-decompressed on the fly.
package parser

import (
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"hash"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/clutchmetrics/internal/model"
)

// Column names.
const (
	colGameID           = "GAME_ID"
	colPeriod           = "PERIOD"
	colClock            = "PCTIMESTRING"
	colEventType        = "EVENTMSGTYPE"
	colActionType       = "EVENTMSGACTIONTYPE"
	colHomeDesc         = "HOMEDESCRIPTION"
	colVisitorDesc      = "VISITORDESCRIPTION"
	colTeamID           = "TEAM_ID"
	colPlayer1TeamID    = "PLAYER1_TEAM_ID"
	colPossessionTeamID = "POSSESSION_TEAM_ID"
	colScoreMargin      = "SCOREMARGIN"
	colWeek             = "WEEK_OF_SEASON"
)

var requiredColumns = []string{colPeriod, colClock, colEventType, colScoreMargin, colWeek}

// ErrNoInput is returned when a directory holds no CSV files.
var ErrNoInput = errors.New("no csv input found")

// Input is the result of loading one file or directory.
type Input struct {
	Events []model.RawEvent
	Hash   string   // sha256 over the raw bytes of every file, in Files order
	Files  []string // files read, sorted
}

// Load reads a single CSV file or every *.csv / *.csv.zst file in a directory.
func Load(path string) (*Input, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	files := []string{path}
	if fi.IsDir() {
		files, err = listInputFiles(path)
		if err != nil {
			return nil, err
		}
	}

	h := sha256.New()
	in := &Input{Files: files}
	for _, f := range files {
		events, err := parseFile(f, h)
		if err != nil {
			return nil, err
		}
		in.Events = append(in.Events, events...)
	}
	in.Hash = fmt.Sprintf("%x", h.Sum(nil))
	return in, nil
}

func listInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.zst") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, dir)
	}
	sort.Strings(files)
	return files, nil
}

// parseFile streams one file through h and the CSV decoder.
func parseFile(path string, h hash.Hash) ([]model.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var r io.Reader = io.TeeReader(f, h)
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	events, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	// Drain so the hash covers trailing bytes the CSV reader did not need.
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return events, nil
}

// Parse decodes a header-led CSV stream into raw events.
// Unparseable numeric cells become zero values; rows with the wrong number of fields are errors.
func Parse(r io.Reader) ([]model.RawEvent, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing column %s", c)
		}
	}

	var events []model.RawEvent
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		events = append(events, decodeRow(rec, cols))
	}
	return events, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func decodeRow(rec []string, cols map[string]int) model.RawEvent {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	ev := model.RawEvent{
		GameID:             get(colGameID),
		Period:             int(parseInt(get(colPeriod))),
		Clock:              get(colClock),
		EventType:          parseNullInt(get(colEventType)),
		ActionType:         parseNullInt(get(colActionType)),
		HomeDescription:    get(colHomeDesc),
		VisitorDescription: get(colVisitorDesc),
		TeamID:             parseInt(get(colTeamID)),
		PossessionTeamID:   parseInt(get(colPossessionTeamID)),
		ScoreMargin:        get(colScoreMargin),
		WeekOfSeason:       int(parseInt(get(colWeek))),
	}
	if _, ok := cols[colTeamID]; !ok {
		ev.TeamID = parseInt(get(colPlayer1TeamID))
	}
	for i := range ev.Players {
		n := strconv.Itoa(i + 1)
		ev.Players[i] = model.Participant{
			ID:   parseInt(get("PLAYER" + n + "_ID")),
			Name: get("PLAYER" + n + "_NAME"),
		}
	}
	return ev
}

// parseNullInt treats empty, NaN and null cells as absent.
func parseNullInt(s string) sql.NullInt64 {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return sql.NullInt64{}
	}
	v, ok := parseNumber(s)
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func parseInt(s string) int64 {
	v, _ := parseNumber(s)
	return v
}

// parseNumber accepts integers and whole floats such as "1627759.0", which
// pandas writes for ID columns containing nulls.
func parseNumber(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
