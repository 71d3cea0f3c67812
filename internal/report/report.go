package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/clutchmetrics/internal/attribution"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/weights"
)

var (
	cHeader = color.New(color.FgCyan, color.Bold)
	cMuted  = color.New(color.Faint)
	cGood   = color.New(color.FgGreen)
	cBad    = color.New(color.FgRed)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintSection prints a colored section heading.
func PrintSection(w io.Writer, title string) {
	cHeader.Fprintf(w, "\n--- %s ---\n\n", title)
}

// PrintRunSummary prints a one-line summary header for a run.
func PrintRunSummary(w io.Writer, s model.RunSummary) {
	fmt.Fprintf(w, "\nRun: %s  |  Source: %s  |  Created: %s\n", shortID(s.RunID), s.Source, s.CreatedAt)
	cMuted.Fprintf(w, "Rows read %d, kept %d, clock failures %d, margin failures %d, contributions %d\n\n",
		s.RowsRead, s.RowsKept, s.ClockFailures, s.MarginFailures, s.Contributions)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// signed formats an eWPA value with an explicit sign.
func signed(v float64) string {
	return fmt.Sprintf("%+.4f", v)
}

// PrintClutchLeaderboard prints leaderboard rows in the given order.
// If focusPlayerID is non-zero, that player's rows are marked with ">".
func PrintClutchLeaderboard(w io.Writer, recs []model.PlayerClutchRecord, focusPlayerID int64) {
	if len(recs) == 0 {
		cMuted.Fprintln(w, "(no clutch contributions)")
		return
	}
	table := newTable(w)
	table.Header(" ", "RANK", "PLAYER", "ID", "PHASE", "EVENTS", "TOTAL", "ADJUSTED")
	for _, r := range recs {
		marker := " "
		if focusPlayerID != 0 && r.PlayerID == focusPlayerID {
			marker = ">"
		}
		table.Append(
			marker,
			strconv.Itoa(r.Rank),
			r.PlayerName,
			strconv.FormatInt(r.PlayerID, 10),
			r.Phase.String(),
			strconv.Itoa(r.Contributions),
			signed(r.TotalValue),
			signed(r.AdjustedValue),
		)
	}
	table.Render()
}

// PrintPlayerTotals prints the overall per-player score across phases. limit <= 0 prints all.
func PrintPlayerTotals(w io.Writer, totals []model.PlayerTotal, limit int) {
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	table := newTable(w)
	table.Header("#", "PLAYER", "ID", "PHASES", "CLUTCH SCORE")
	for i, t := range totals {
		table.Append(
			strconv.Itoa(i+1),
			t.PlayerName,
			strconv.FormatInt(t.PlayerID, 10),
			strconv.Itoa(t.Phases),
			signed(t.AdjustedValue),
		)
	}
	table.Render()
}

// PrintEfficiencyTable prints efficiency rows sorted by points, then usage. limit <= 0 prints all.
func PrintEfficiencyTable(w io.Writer, recs []model.PlayerEfficiencyRecord, limit int) {
	sorted := make([]model.PlayerEfficiencyRecord, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].UsageRate() > sorted[j].UsageRate()
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	table := newTable(w)
	table.Header("PLAYER", "PHASE", "TEAM", "PTS", "FGA", "FTA", "TOV", "USG%", "TS%", "OBS", "WIN%")
	for _, r := range sorted {
		ts := "—"
		if r.FGA > 0 && r.FTA > 0 {
			ts = fmt.Sprintf("%.1f%%", 100*r.TrueShootingPct())
		}
		table.Append(
			r.PlayerName,
			r.Phase.String(),
			strconv.FormatInt(r.TeamID, 10),
			strconv.Itoa(r.Points),
			strconv.Itoa(r.FGA),
			strconv.Itoa(r.FTA),
			strconv.Itoa(r.Turnovers),
			fmt.Sprintf("%.1f", r.UsageRate()),
			ts,
			strconv.Itoa(r.GamesObserved),
			fmt.Sprintf("%.0f%%", 100*r.WinPct()),
		)
	}
	table.Render()
}

// PrintWeightTable prints the effective eWPA weight of every tag.
func PrintWeightTable(w io.Writer, entries []weights.Entry) {
	table := newTable(w)
	table.Header("TAG", "WEIGHT")
	for _, e := range entries {
		table.Append(string(e.Tag), signed(e.Weight))
	}
	table.Render()
}

// PrintTagCounts prints how often each tag was emitted.
func PrintTagCounts(w io.Writer, counts []model.TagCount) {
	table := newTable(w)
	table.Header("TAG", "LABELS")
	for _, c := range counts {
		table.Append(string(c.Tag), strconv.Itoa(c.Count))
	}
	table.Render()
}

// PrintLabels explains one classified event: each label, its slot, player and weight,
// followed by the per-slot totals.
func PrintLabels(w io.Writer, ev model.ClassifiedEvent, wt attribution.Weigher) {
	clock := "invalid"
	if ev.ClockValid {
		clock = fmt.Sprintf("%ds left", ev.SecondsRemaining)
	}
	fmt.Fprintf(w, "\nPeriod %d, %s, margin %d, %s", ev.Period, clock, ev.Margin, ev.Phase)
	if ev.LateClock {
		cHeader.Fprint(w, "  [late clock]")
	}
	fmt.Fprint(w, "\n\n")

	table := newTable(w)
	table.Header("TAG", "SLOT", "PLAYER", "WEIGHT")
	for _, l := range ev.Labels {
		p := ev.Participant(l.Slot)
		name := p.Name
		if name == "" {
			name = "—"
		}
		table.Append(string(l.Tag), l.Slot.String(), name, colorWeight(wt.Weight(l.Tag)))
	}
	table.Render()

	totals := attribution.SlotTotals(&ev, wt)
	fmt.Fprintln(w)
	for i, v := range totals {
		slot := model.Slot(i + 1)
		fmt.Fprintf(w, "  %s %s", slot, colorWeight(v))
	}
	fmt.Fprintln(w)
}

func colorWeight(v float64) string {
	switch {
	case v > 0:
		return cGood.Sprint(signed(v))
	case v < 0:
		return cBad.Sprint(signed(v))
	default:
		return signed(v)
	}
}
