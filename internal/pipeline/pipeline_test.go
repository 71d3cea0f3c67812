package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pable/clutchmetrics/internal/metrics"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/preprocess"
)

func raw(period int, clock, margin string, week int, eventType, actionType int64, home, visitor string, players ...model.Participant) model.RawEvent {
	ev := model.RawEvent{
		Period:             period,
		Clock:              clock,
		EventType:          sql.NullInt64{Int64: eventType, Valid: eventType != 0},
		ActionType:         sql.NullInt64{Int64: actionType, Valid: actionType != 0},
		HomeDescription:    home,
		VisitorDescription: visitor,
		TeamID:             1,
		ScoreMargin:        margin,
		WeekOfSeason:       week,
	}
	copy(ev.Players[:], players)
	return ev
}

var (
	jones = model.Participant{ID: 101, Name: "Jones"}
	smith = model.Participant{ID: 202, Name: "Smith"}
	brown = model.Participant{ID: 303, Name: "Brown"}
)

// sampleGame is a mix of kept and filtered rows across phases.
func sampleGame() []model.RawEvent {
	return []model.RawEvent{
		raw(4, "0:08", "2", 32, 1, 79, "JONES 3PT SHOT (24 PTS) (SMITH 5 AST)", "", jones, smith),
		raw(4, "4:30", "-3", 10, 2, 1, "MISS Smith 15' Jump Shot", "Brown BLOCK (1 BLK)", smith, model.Participant{}, brown),
		raw(3, "0:05", "1", 10, 1, 1, "Jones 2' Layup (2 PTS)", "", jones),
		raw(4, "6:00", "1", 10, 1, 1, "Jones 2' Layup (2 PTS)", "", jones),
		raw(4, "1:00", "12", 10, 1, 1, "Jones 2' Layup (2 PTS)", "", jones),
		raw(4, "bad", "1", 10, 1, 1, "Jones 2' Layup (2 PTS)", "", jones),
		raw(5, "0:03", "TIE", 27, 5, 1, "Smith Bad Pass Turnover (P1.T2)", "Jones STEAL (1 STL)", smith, jones),
		raw(4, "2:10", "", 27, 3, 11, "Jones Free Throw 1 of 2", "", jones),
		raw(4, "2:10", "oops", 27, 8, 0, "SUB: Brown FOR Smith", "", brown, smith),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRun_FiltersAndCounts(t *testing.T) {
	res, err := Run(context.Background(), sampleGame(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := res.Stats
	if s.RowsRead != 9 || s.RowsKept != 5 {
		t.Errorf("read=%d kept=%d, want 9/5", s.RowsRead, s.RowsKept)
	}
	if s.Filtered[preprocess.ReasonPeriod] != 1 || s.Filtered[preprocess.ReasonClock] != 2 || s.Filtered[preprocess.ReasonMargin] != 1 {
		t.Errorf("unexpected filter counts %v", s.Filtered)
	}
	if s.ClockFailures != 1 {
		t.Errorf("clock failures %d, want 1", s.ClockFailures)
	}
	if s.MarginFailures != 1 {
		t.Errorf("margin failures %d, want 1 (blank cells are not failures)", s.MarginFailures)
	}
	if s.Tags[model.TagOther] != 1 {
		t.Errorf("expected the substitution to be Other, tags %v", s.Tags)
	}
}

func TestRun_Leaderboard(t *testing.T) {
	res, err := Run(context.Background(), sampleGame(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Clutch) == 0 {
		t.Fatal("empty leaderboard")
	}
	top := res.Clutch[0]
	// Finals clutch-margin three: 0.100 x 2.0.
	if top.PlayerID != jones.ID || top.Phase != model.PhaseFinals || !approx(top.AdjustedValue, 0.2) {
		t.Errorf("unexpected leader %+v", top)
	}
	for i := 1; i < len(res.Clutch); i++ {
		if res.Clutch[i-1].AdjustedValue < res.Clutch[i].AdjustedValue {
			t.Fatalf("leaderboard not sorted at %d", i)
		}
		if res.Clutch[i].Rank != i+1 {
			t.Errorf("rank %d at position %d", res.Clutch[i].Rank, i)
		}
	}

	var smithPlayoffs *model.PlayerClutchRecord
	for i := range res.Clutch {
		r := &res.Clutch[i]
		if r.PlayerID == smith.ID && r.Phase == model.PhasePlayoffs {
			smithPlayoffs = r
		}
	}
	if smithPlayoffs == nil {
		t.Fatal("missing Smith playoffs row")
	}
	// Late turnover -0.042 x 1.5.
	if !approx(smithPlayoffs.AdjustedValue, -0.063) {
		t.Errorf("Smith playoffs adjusted %f, want -0.063", smithPlayoffs.AdjustedValue)
	}
	if len(res.Totals) != 3 {
		t.Errorf("expected 3 player totals, got %d", len(res.Totals))
	}
}

func TestRun_ConservationPerPhase(t *testing.T) {
	opts := DefaultOptions()
	res, err := Run(context.Background(), sampleGame(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sums := map[model.SeasonPhase]float64{}
	for _, ev := range sampleGame() {
		e, reason := Prepare(ev, &opts)
		if reason != preprocess.ReasonKept {
			continue
		}
		_, contribs := Explain(e.RawEvent, opts)
		for _, c := range contribs {
			sums[c.Phase] += c.Weight
		}
	}
	adjusted := map[model.SeasonPhase]float64{}
	for _, r := range res.Clutch {
		adjusted[r.Phase] += r.AdjustedValue
	}
	for phase, sum := range sums {
		if !approx(adjusted[phase], sum*opts.Multipliers.For(phase)) {
			t.Errorf("%v: adjusted %f, want %f", phase, adjusted[phase], sum*opts.Multipliers.For(phase))
		}
	}
}

// bigSample repeats the sample with distinct players so partitions see overlapping keys.
func bigSample(n int) []model.RawEvent {
	var out []model.RawEvent
	for i := 0; i < n; i++ {
		for _, ev := range sampleGame() {
			if i%3 == 0 {
				ev.Players[0].ID += int64(i)
				ev.Players[0].Name = fmt.Sprintf("%s-%d", ev.Players[0].Name, i)
			}
			out = append(out, ev)
		}
	}
	return out
}

func TestRun_IdempotentAndPartitionIndependent(t *testing.T) {
	events := bigSample(50)

	base := DefaultOptions()
	first, err := Run(context.Background(), events, base)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	again, err := Run(context.Background(), events, base)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first.Clutch) != len(again.Clutch) {
		t.Fatalf("row count changed between identical runs")
	}
	for i := range first.Clutch {
		if first.Clutch[i] != again.Clutch[i] {
			t.Fatalf("row %d differs between identical runs: %+v vs %+v", i, first.Clutch[i], again.Clutch[i])
		}
	}

	for _, workers := range []int{2, 3, 7, 64} {
		opts := DefaultOptions()
		opts.Workers = workers
		got, err := Run(context.Background(), events, opts)
		if err != nil {
			t.Fatalf("Run with %d workers: %v", workers, err)
		}
		if len(got.Clutch) != len(first.Clutch) {
			t.Fatalf("%d workers: %d rows, want %d", workers, len(got.Clutch), len(first.Clutch))
		}
		for i := range got.Clutch {
			a, b := first.Clutch[i], got.Clutch[i]
			if a.PlayerID != b.PlayerID || a.Phase != b.Phase || !approx(a.AdjustedValue, b.AdjustedValue) {
				t.Fatalf("%d workers: row %d %+v, want %+v", workers, i, b, a)
			}
		}
		if len(got.Efficiency) != len(first.Efficiency) {
			t.Fatalf("%d workers: efficiency rows differ", workers)
		}
		for i := range got.Efficiency {
			if got.Efficiency[i] != first.Efficiency[i] {
				t.Fatalf("%d workers: efficiency row %d differs", workers, i)
			}
		}
		if got.Stats.RowsKept != first.Stats.RowsKept {
			t.Errorf("%d workers: kept %d, want %d", workers, got.Stats.RowsKept, first.Stats.RowsKept)
		}
	}
}

func TestRun_EmptyInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 4
	res, err := Run(context.Background(), nil, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Clutch) != 0 || len(res.Efficiency) != 0 || res.Stats.Partitions != 1 {
		t.Errorf("unexpected result for empty input: %+v", res)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, sampleGame(), DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	opts := DefaultOptions()
	opts.Recorder = rec
	if _, err := Run(context.Background(), sampleGame(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := testutil.GatherAndCount(rec.Registry(), "clutch_pipeline_rows_read_total")
	if err != nil || n != 1 {
		t.Errorf("expected rows_read series, got %d (%v)", n, err)
	}
	n, err = testutil.GatherAndCount(rec.Registry(), "clutch_pipeline_rows_filtered_total")
	if err != nil || n != 3 {
		t.Errorf("expected 3 filter reasons, got %d (%v)", n, err)
	}
}

func TestPartitionBounds(t *testing.T) {
	cases := []struct {
		n, workers int
		want       int
	}{
		{0, 4, 1},
		{5, 1, 1},
		{5, 10, 5},
		{10, 3, 3},
		{10, 0, 1},
	}
	for _, tc := range cases {
		got := partitionBounds(tc.n, tc.workers)
		if len(got) != tc.want {
			t.Errorf("partitionBounds(%d, %d): %d ranges, want %d", tc.n, tc.workers, len(got), tc.want)
			continue
		}
		covered := 0
		for i, b := range got {
			if i > 0 && b[0] != got[i-1][1] {
				t.Errorf("partitionBounds(%d, %d): gap at %d", tc.n, tc.workers, i)
			}
			covered += b[1] - b[0]
		}
		if covered != tc.n {
			t.Errorf("partitionBounds(%d, %d): covers %d rows", tc.n, tc.workers, covered)
		}
	}
}
