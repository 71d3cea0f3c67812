// Package preprocess derives clock, margin and season-phase fields from raw
// play-by-play rows and applies the high-leverage pre-filters.
package preprocess

import (
	"strconv"
	"strings"

	"github.com/pable/clutchmetrics/internal/model"
)

// ClockUnknown is returned when a game clock cannot be parsed. It is never a valid reading.
const ClockUnknown = -1

// Default filter and window bounds.
const (
	DefaultMinPeriod        = 4
	DefaultMaxSeconds       = 300
	DefaultMaxAbsMargin     = 6
	DefaultLateClockSeconds = 10
)

// ParseClock converts a "M:SS" game clock into seconds remaining in the period.
func ParseClock(clock string) int {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return ClockUnknown
	}
	return ParseClockParts(minutes, seconds)
}

// ParseClockParts converts an already split minutes/seconds pair.
func ParseClockParts(minutes, seconds string) int {
	if minutes == "" || seconds == "" {
		return ClockUnknown
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 {
		return ClockUnknown
	}
	s, err := strconv.Atoi(seconds)
	if err != nil || s < 0 || s >= 60 {
		return ClockUnknown
	}
	return m*60 + s
}

// ParseMargin normalizes a SCOREMARGIN cell. "TIE" is 0; anything unparseable is also 0.
func ParseMargin(margin string) int {
	v, _ := parseMargin(margin)
	return v
}

func parseMargin(margin string) (int, bool) {
	margin = strings.TrimSpace(margin)
	if strings.EqualFold(margin, "TIE") {
		return 0, true
	}
	v, err := strconv.Atoi(margin)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PhaseForWeek maps a 1-based week-of-season ordinal to its season phase.
func PhaseForWeek(week int) model.SeasonPhase {
	switch {
	case week >= 1 && week <= 24:
		return model.PhaseRegularSeason
	case week >= 25 && week <= 30:
		return model.PhasePlayoffs
	case week >= 31 && week <= 33:
		return model.PhaseFinals
	default:
		return model.PhaseUnknown
	}
}

// IsLateClock reports whether seconds falls in (0, limit]. ClockUnknown is never late.
func IsLateClock(seconds, limit int) bool {
	return seconds != ClockUnknown && seconds > 0 && seconds <= limit
}

// Enrich computes the derived fields of one row. lateClockSeconds bounds the late-clock window.
func Enrich(raw model.RawEvent, lateClockSeconds int) model.EnrichedEvent {
	secs := ParseClock(raw.Clock)
	margin, marginOK := parseMargin(raw.ScoreMargin)
	return model.EnrichedEvent{
		RawEvent:         raw,
		SecondsRemaining: secs,
		ClockValid:       secs != ClockUnknown,
		Margin:           margin,
		MarginValid:      marginOK,
		Phase:            PhaseForWeek(raw.WeekOfSeason),
		LateClock:        IsLateClock(secs, lateClockSeconds),
	}
}

// Filter is the high-leverage row contract: late periods, the final minutes, close games.
type Filter struct {
	MinPeriod    int
	MaxSeconds   int
	MaxAbsMargin int
}

// DefaultFilter keeps the fourth quarter and overtime, the last five minutes, and margins within six.
func DefaultFilter() Filter {
	return Filter{
		MinPeriod:    DefaultMinPeriod,
		MaxSeconds:   DefaultMaxSeconds,
		MaxAbsMargin: DefaultMaxAbsMargin,
	}
}

// Reject reasons reported by Filter.Check.
const (
	ReasonKept   = ""
	ReasonPeriod = "period"
	ReasonClock  = "clock"
	ReasonMargin = "margin"
)

// Check returns ReasonKept when the event passes, otherwise the first failing condition.
func (f Filter) Check(ev *model.EnrichedEvent) string {
	if ev.Period < f.MinPeriod {
		return ReasonPeriod
	}
	if !ev.ClockValid || ev.SecondsRemaining < 0 || ev.SecondsRemaining > f.MaxSeconds {
		return ReasonClock
	}
	if !ev.CloseMargin(f.MaxAbsMargin) {
		return ReasonMargin
	}
	return ReasonKept
}

// Keep reports whether the event passes every condition.
func (f Filter) Keep(ev *model.EnrichedEvent) bool {
	return f.Check(ev) == ReasonKept
}
