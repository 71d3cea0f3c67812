package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

const sampleCSV = `GAME_ID,PERIOD,PCTIMESTRING,EVENTMSGTYPE,EVENTMSGACTIONTYPE,HOMEDESCRIPTION,VISITORDESCRIPTION,PLAYER1_ID,PLAYER1_NAME,PLAYER2_ID,PLAYER2_NAME,PLAYER3_ID,PLAYER3_NAME,TEAM_ID,SCOREMARGIN,WEEK_OF_SEASON
0041900406,4,0:08,1,79,JONES 3PT SHOT (24 PTS) (SMITH 5 AST),,101,Jones,202,Smith,,,1610612737,2,32
0041900406,4,0:30,,,,"Hawks Rebound",1610612737.0,,,,,,1610612737,TIE,32
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParse_HeaderDriven(t *testing.T) {
	events, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	e := events[0]
	if e.GameID != "0041900406" || e.Period != 4 || e.Clock != "0:08" || e.WeekOfSeason != 32 {
		t.Errorf("unexpected row fields %+v", e)
	}
	if !e.EventType.Valid || e.EventType.Int64 != 1 || !e.ActionType.Valid || e.ActionType.Int64 != 79 {
		t.Errorf("unexpected type fields %+v %+v", e.EventType, e.ActionType)
	}
	if e.Players[0].ID != 101 || e.Players[0].Name != "Jones" || e.Players[1].Name != "Smith" {
		t.Errorf("unexpected players %+v", e.Players)
	}
	if e.Players[2].Present() {
		t.Errorf("empty PLAYER3 should be absent, got %+v", e.Players[2])
	}
	if e.TeamID != 1610612737 || e.ScoreMargin != "2" {
		t.Errorf("unexpected team/margin %d %q", e.TeamID, e.ScoreMargin)
	}

	team := events[1]
	if team.EventType.Valid || team.ActionType.Valid {
		t.Errorf("blank type cells should be null, got %+v %+v", team.EventType, team.ActionType)
	}
	if team.Players[0].ID != 1610612737 || team.Players[0].Name != "" {
		t.Errorf("float ID cell not decoded: %+v", team.Players[0])
	}
}

func TestParse_ColumnOrderAndFallbacks(t *testing.T) {
	csv := "WEEK_OF_SEASON,SCOREMARGIN,PLAYER1_TEAM_ID,EVENTMSGTYPE,PCTIMESTRING,PERIOD,POSSESSION_TEAM_ID,PLAYER1_NAME,PLAYER1_ID\n" +
		"27,-3,99,4,1:02,5,98,Brown,303\n"
	events, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e := events[0]
	if e.TeamID != 99 {
		t.Errorf("TEAM_ID should fall back to PLAYER1_TEAM_ID, got %d", e.TeamID)
	}
	if e.PossessionTeamID != 98 || e.Period != 5 || e.WeekOfSeason != 27 || e.Players[0].ID != 303 {
		t.Errorf("unexpected fields %+v", e)
	}
	if e.ActionType.Valid || e.GameID != "" {
		t.Errorf("absent optional columns should be zero, got %+v", e)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(strings.NewReader("PERIOD,PCTIMESTRING\n4,0:10\n")); err == nil {
		t.Error("expected error for missing required columns")
	}

	short := "PERIOD,PCTIMESTRING,EVENTMSGTYPE,SCOREMARGIN,WEEK_OF_SEASON\n4,0:10,1\n"
	if _, err := Parse(strings.NewReader(short)); err == nil {
		t.Error("expected error for a short row")
	}

	events, err := Parse(strings.NewReader(""))
	if err != nil || events != nil {
		t.Errorf("empty input: events=%v err=%v", events, err)
	}

	bad := "PERIOD,PCTIMESTRING,EVENTMSGTYPE,SCOREMARGIN,WEEK_OF_SEASON\nfour,0:10,x,TIE,1.5\n"
	events, err = Parse(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("bad numeric cells should not be errors: %v", err)
	}
	if events[0].Period != 0 || events[0].EventType.Valid || events[0].WeekOfSeason != 0 {
		t.Errorf("bad numeric cells should be zero values, got %+v", events[0])
	}
}

func TestLoad_FileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "a.csv", []byte(sampleCSV))

	var compressed []byte
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed = enc.EncodeAll([]byte(sampleCSV), nil)
	_ = enc.Close()
	writeFile(t, dir, "b.csv.zst", compressed)
	writeFile(t, dir, "notes.txt", []byte("ignored"))

	single, err := Load(plain)
	if err != nil {
		t.Fatalf("Load file: %v", err)
	}
	if len(single.Events) != 2 || len(single.Files) != 1 || len(single.Hash) != 64 {
		t.Errorf("unexpected single-file input: %d events, %d files, hash %q", len(single.Events), len(single.Files), single.Hash)
	}

	all, err := Load(dir)
	if err != nil {
		t.Fatalf("Load dir: %v", err)
	}
	if len(all.Events) != 4 || len(all.Files) != 2 {
		t.Errorf("expected 4 events from 2 files, got %d from %v", len(all.Events), all.Files)
	}
	if filepath.Base(all.Files[0]) != "a.csv" {
		t.Errorf("files should be sorted, got %v", all.Files)
	}

	again, err := Load(dir)
	if err != nil {
		t.Fatalf("Load dir again: %v", err)
	}
	if again.Hash != all.Hash {
		t.Error("hash should be stable across loads")
	}
	if all.Hash == single.Hash {
		t.Error("different inputs should hash differently")
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}
