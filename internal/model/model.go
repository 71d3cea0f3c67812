package model

import (
	"database/sql"
	"sort"
)

// SeasonPhase is the stage of the season an event was played in.
type SeasonPhase int

const (
	PhaseUnknown SeasonPhase = iota
	PhaseRegularSeason
	PhasePlayoffs
	PhaseFinals
)

func (p SeasonPhase) String() string {
	switch p {
	case PhaseRegularSeason:
		return "Regular Season"
	case PhasePlayoffs:
		return "Playoffs"
	case PhaseFinals:
		return "Finals"
	default:
		return "Unknown"
	}
}

// Slug is the lower-case, space-free form used in storage keys and redis keys.
func (p SeasonPhase) Slug() string {
	switch p {
	case PhaseRegularSeason:
		return "regular_season"
	case PhasePlayoffs:
		return "playoffs"
	case PhaseFinals:
		return "finals"
	default:
		return "unknown"
	}
}

// ParsePhase accepts either the display name or the slug. Anything else is PhaseUnknown.
func ParsePhase(s string) SeasonPhase {
	for _, p := range AllPhases() {
		if s == p.String() || s == p.Slug() {
			return p
		}
	}
	return PhaseUnknown
}

// AllPhases lists every phase in season order, Unknown last.
func AllPhases() []SeasonPhase {
	return []SeasonPhase{PhaseRegularSeason, PhasePlayoffs, PhaseFinals, PhaseUnknown}
}

// Slot identifies which participant column of an event a label is credited to.
type Slot int

const (
	SlotNone Slot = iota
	SlotPrimary
	SlotSecondary
	SlotTertiary
)

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "PLAYER1"
	case SlotSecondary:
		return "PLAYER2"
	case SlotTertiary:
		return "PLAYER3"
	default:
		return "-"
	}
}

// Tag is the semantic event type, e.g. "Made 3-Point Shot (Clutch Margin)".
type Tag string

// TagOther is emitted when no classification rule fires.
const TagOther Tag = "Other"

// ---- Raw events read from play-by-play input ----

// Participant is one of the three player columns of a play-by-play row.
type Participant struct {
	ID   int64  // 0 if absent
	Name string // "" if absent
}

// Present reports whether the row named a player in this slot.
func (p Participant) Present() bool {
	return p.ID != 0 || p.Name != ""
}

type RawEvent struct {
	GameID             string
	Period             int
	Clock              string // PCTIMESTRING, "M:SS"
	EventType          sql.NullInt64
	ActionType         sql.NullInt64
	HomeDescription    string
	VisitorDescription string
	Players            [3]Participant
	TeamID             int64
	PossessionTeamID   int64 // 0 when the input has no possession context
	ScoreMargin        string
	WeekOfSeason       int
}

// Participant returns the player in the given slot. SlotNone yields the zero Participant.
func (e *RawEvent) Participant(s Slot) Participant {
	switch s {
	case SlotPrimary, SlotSecondary, SlotTertiary:
		return e.Players[int(s)-1]
	default:
		return Participant{}
	}
}

// HasParticipant reports whether any of the three player columns is populated.
func (e *RawEvent) HasParticipant() bool {
	for _, p := range e.Players {
		if p.Name != "" {
			return true
		}
	}
	return false
}

// EnrichedEvent carries the derived clock, margin and phase fields.
type EnrichedEvent struct {
	RawEvent
	SecondsRemaining int // ClockUnknown if the clock did not parse
	ClockValid       bool
	Margin           int
	MarginValid      bool
	Phase            SeasonPhase
	LateClock        bool
}

// CloseMargin reports whether the absolute margin is within limit.
func (e *EnrichedEvent) CloseMargin(limit int) bool {
	m := e.Margin
	if m < 0 {
		m = -m
	}
	return m <= limit
}

// Label is one classified tag plus the participant it is credited to.
type Label struct {
	Tag  Tag
	Slot Slot
}

type ClassifiedEvent struct {
	EnrichedEvent
	Labels []Label // never empty
}

// Contribution is the weight one label credits to one player.
type Contribution struct {
	PlayerID   int64
	PlayerName string
	Phase      SeasonPhase
	Tag        Tag
	Weight     float64
}

// ---- Aggregated output ----

// TagCount is the number of labels a run emitted for one tag.
type TagCount struct {
	Tag   Tag
	Count int
}

// SortedTagCounts flattens a tag histogram, most frequent first, ties by tag name.
func SortedTagCounts(m map[Tag]int) []TagCount {
	out := make([]TagCount, 0, len(m))
	for tag, n := range m {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// PlayerClutchRecord is one leaderboard row.
type PlayerClutchRecord struct {
	PlayerID      int64
	PlayerName    string
	Phase         SeasonPhase
	TotalValue    float64
	AdjustedValue float64
	Contributions int
	Rank          int
}

// PlayerTotal folds every phase of a player into one adjusted score.
type PlayerTotal struct {
	PlayerID      int64
	PlayerName    string
	AdjustedValue float64
	Phases        int
}

type PlayerEfficiencyRecord struct {
	PlayerID   int64
	PlayerName string
	Phase      SeasonPhase
	TeamID     int64

	Points        int
	FGA           int
	FTA           int
	Turnovers     int
	Wins          int
	GamesObserved int // event observations; the input has no per-game result

	TeamFGA       int
	TeamFTA       int
	TeamTurnovers int
}

// UsageRate is the share of team possessions the player used, in percent.
func (r *PlayerEfficiencyRecord) UsageRate() float64 {
	if r.FGA == 0 || r.TeamFGA == 0 {
		return 0
	}
	player := float64(r.FGA) + 0.44*float64(r.FTA) + float64(r.Turnovers)
	team := float64(r.TeamFGA) + 0.44*float64(r.TeamFTA) + float64(r.TeamTurnovers)
	return 100 * player / team
}

// TrueShootingPct requires both field-goal and free-throw attempts.
func (r *PlayerEfficiencyRecord) TrueShootingPct() float64 {
	if r.FGA == 0 || r.FTA == 0 {
		return 0
	}
	return float64(r.Points) / (2 * (float64(r.FGA) + 0.44*float64(r.FTA)))
}

func (r *PlayerEfficiencyRecord) WinPct() float64 {
	if r.GamesObserved == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.GamesObserved)
}

// RunSummary is a lightweight record for list/show commands.
type RunSummary struct {
	RunID             string
	InputHash         string // sha256 of the input bytes
	ConfigHash        string // fingerprint of the scoring parameters
	Source            string
	CreatedAt         string
	RowsRead          int
	RowsKept          int
	ClockFailures     int
	MarginFailures    int
	Contributions     int
	ClutchRecords     int
	EfficiencyRecords int
}
