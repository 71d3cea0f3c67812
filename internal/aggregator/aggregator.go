package aggregator

import (
	"sort"

	"github.com/pable/clutchmetrics/internal/attribution"
	"github.com/pable/clutchmetrics/internal/model"
)

// Multipliers scales a phase's total by how much its games matter.
type Multipliers map[model.SeasonPhase]float64

// DefaultMultipliers weighs playoff games 1.5x and Finals games 2x.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		model.PhaseRegularSeason: 1.0,
		model.PhasePlayoffs:      1.5,
		model.PhaseFinals:        2.0,
		model.PhaseUnknown:       1.0,
	}
}

// For returns the phase multiplier, 1.0 when the phase is not configured.
func (m Multipliers) For(p model.SeasonPhase) float64 {
	if v, ok := m[p]; ok {
		return v
	}
	return 1.0
}

// Aggregate runs both reductions over already-classified events in one pass.
func Aggregate(events []model.ClassifiedEvent, w attribution.Weigher, mult Multipliers) ([]model.PlayerClutchRecord, []model.PlayerEfficiencyRecord) {
	clutch := NewClutchAccumulator()
	eff := NewEfficiencyAccumulator()
	for i := range events {
		for _, c := range attribution.Attribute(&events[i], w) {
			clutch.Add(c)
		}
		eff.Add(&events[i])
	}
	return clutch.Records(mult), eff.Records()
}

// ---- Clutch value ----

type clutchKey struct {
	playerID int64
	name     string
	phase    model.SeasonPhase
}

type clutchEntry struct {
	total float64
	count int
}

// ClutchAccumulator sums contribution weights per (player, phase). Partial
// accumulators built over disjoint input slices can be merged in input order.
type ClutchAccumulator struct {
	entries map[clutchKey]*clutchEntry
	order   []clutchKey // first-seen order, used as the sort tie-break
}

func NewClutchAccumulator() *ClutchAccumulator {
	return &ClutchAccumulator{entries: make(map[clutchKey]*clutchEntry)}
}

// Add folds one contribution in. Zero weights and anonymous players are ignored.
func (a *ClutchAccumulator) Add(c model.Contribution) {
	if c.PlayerID == 0 || c.Weight == 0 {
		return
	}
	k := clutchKey{c.PlayerID, c.PlayerName, c.Phase}
	e, ok := a.entries[k]
	if !ok {
		e = &clutchEntry{}
		a.entries[k] = e
		a.order = append(a.order, k)
	}
	e.total += c.Weight
	e.count++
}

// Merge folds other into a. other's keys rank after a's on ties.
func (a *ClutchAccumulator) Merge(other *ClutchAccumulator) {
	for _, k := range other.order {
		src := other.entries[k]
		e, ok := a.entries[k]
		if !ok {
			e = &clutchEntry{}
			a.entries[k] = e
			a.order = append(a.order, k)
		}
		e.total += src.total
		e.count += src.count
	}
}

// Len returns the number of distinct (player, phase) keys.
func (a *ClutchAccumulator) Len() int { return len(a.order) }

// Records returns leaderboard rows ordered by AdjustedValue descending, ranked from 1.
func (a *ClutchAccumulator) Records(mult Multipliers) []model.PlayerClutchRecord {
	out := make([]model.PlayerClutchRecord, 0, len(a.order))
	for _, k := range a.order {
		e := a.entries[k]
		out = append(out, model.PlayerClutchRecord{
			PlayerID:      k.playerID,
			PlayerName:    k.name,
			Phase:         k.phase,
			TotalValue:    e.total,
			AdjustedValue: e.total * mult.For(k.phase),
			Contributions: e.count,
		})
	}
	SortLeaderboard(out)
	return out
}

// SortLeaderboard orders rows by AdjustedValue descending, keeping input order on ties, and assigns ranks.
func SortLeaderboard(rows []model.PlayerClutchRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AdjustedValue > rows[j].AdjustedValue
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// PlayerTotals folds every phase of each player into one adjusted score, highest first.
func PlayerTotals(records []model.PlayerClutchRecord) []model.PlayerTotal {
	type key struct {
		id   int64
		name string
	}
	idx := make(map[key]int)
	var out []model.PlayerTotal
	for _, r := range records {
		k := key{r.PlayerID, r.PlayerName}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, model.PlayerTotal{PlayerID: r.PlayerID, PlayerName: r.PlayerName})
		}
		out[i].AdjustedValue += r.AdjustedValue
		out[i].Phases++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdjustedValue > out[j].AdjustedValue
	})
	return out
}

// ---- Efficiency ----

type effKey struct {
	playerID int64
	name     string
	phase    model.SeasonPhase
	teamID   int64
}

type effCounts struct {
	points, fga, fta, turnovers, wins, games int
}

type teamCounts struct {
	fga, fta, turnovers int
}

// EfficiencyAccumulator counts points, attempts, turnovers and margin-sign wins
// for the primary participant of each event, plus per-team attempt totals.
type EfficiencyAccumulator struct {
	players map[effKey]*effCounts
	order   []effKey
	teams   map[int64]*teamCounts
}

func NewEfficiencyAccumulator() *EfficiencyAccumulator {
	return &EfficiencyAccumulator{
		players: make(map[effKey]*effCounts),
		teams:   make(map[int64]*teamCounts),
	}
}

// Add counts one classified event. Events without a primary player, or whose
// labels all target other slots, are not observations.
func (a *EfficiencyAccumulator) Add(ev *model.ClassifiedEvent) {
	primary := ev.Participant(model.SlotPrimary)
	if primary.ID == 0 {
		return
	}

	var c effCounts
	observed := false
	for _, l := range ev.Labels {
		if l.Slot != model.SlotPrimary {
			continue
		}
		observed = true
		c.points += l.Tag.Points()
		if l.Tag.IsFieldGoal() {
			c.fga++
		}
		if l.Tag.IsFreeThrow() {
			c.fta++
		}
		if l.Tag.IsTurnover() {
			c.turnovers++
		}
	}
	if !observed {
		return
	}
	c.games = 1
	// A positive margin is treated as the primary side winning.
	if ev.Margin > 0 {
		c.wins = 1
	}

	a.addPlayer(effKey{primary.ID, primary.Name, ev.Phase, ev.TeamID}, c)
	a.addTeam(ev.TeamID, teamCounts{fga: c.fga, fta: c.fta, turnovers: c.turnovers})
}

func (a *EfficiencyAccumulator) addPlayer(k effKey, c effCounts) {
	e, ok := a.players[k]
	if !ok {
		e = &effCounts{}
		a.players[k] = e
		a.order = append(a.order, k)
	}
	e.points += c.points
	e.fga += c.fga
	e.fta += c.fta
	e.turnovers += c.turnovers
	e.wins += c.wins
	e.games += c.games
}

func (a *EfficiencyAccumulator) addTeam(teamID int64, c teamCounts) {
	t, ok := a.teams[teamID]
	if !ok {
		t = &teamCounts{}
		a.teams[teamID] = t
	}
	t.fga += c.fga
	t.fta += c.fta
	t.turnovers += c.turnovers
}

// Merge folds other into a.
func (a *EfficiencyAccumulator) Merge(other *EfficiencyAccumulator) {
	for _, k := range other.order {
		a.addPlayer(k, *other.players[k])
	}
	for id, t := range other.teams {
		a.addTeam(id, *t)
	}
}

// Len returns the number of distinct (player, phase, team) keys.
func (a *EfficiencyAccumulator) Len() int { return len(a.order) }

// Records joins team totals onto player rows, in first-seen order.
func (a *EfficiencyAccumulator) Records() []model.PlayerEfficiencyRecord {
	out := make([]model.PlayerEfficiencyRecord, 0, len(a.order))
	for _, k := range a.order {
		p := a.players[k]
		r := model.PlayerEfficiencyRecord{
			PlayerID:      k.playerID,
			PlayerName:    k.name,
			Phase:         k.phase,
			TeamID:        k.teamID,
			Points:        p.points,
			FGA:           p.fga,
			FTA:           p.fta,
			Turnovers:     p.turnovers,
			Wins:          p.wins,
			GamesObserved: p.games,
		}
		if t, ok := a.teams[k.teamID]; ok {
			r.TeamFGA = t.fga
			r.TeamFTA = t.fta
			r.TeamTurnovers = t.turnovers
		}
		out = append(out, r)
	}
	return out
}
