// Package attribution credits each classified label's weight to the participant
// slot the label targets.
package attribution

import "github.com/pable/clutchmetrics/internal/model"

// Weigher resolves a tag to its weight. *weights.Table satisfies it.
type Weigher interface {
	Weight(tag model.Tag) float64
}

// Attribute returns one contribution per label that names a player and carries a
// non-zero weight. Each label is credited to exactly one slot.
func Attribute(ev *model.ClassifiedEvent, w Weigher) []model.Contribution {
	var out []model.Contribution
	for _, l := range ev.Labels {
		if l.Slot == model.SlotNone {
			continue
		}
		weight := w.Weight(l.Tag)
		if weight == 0 {
			continue
		}
		p := ev.Participant(l.Slot)
		if p.ID == 0 {
			continue
		}
		out = append(out, model.Contribution{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Phase:      ev.Phase,
			Tag:        l.Tag,
			Weight:     weight,
		})
	}
	return out
}

// SlotTotals sums an event's label weights per participant slot, before any
// null-player filtering. Index 0 is PLAYER1.
func SlotTotals(ev *model.ClassifiedEvent, w Weigher) [3]float64 {
	var totals [3]float64
	for _, l := range ev.Labels {
		if l.Slot == model.SlotNone {
			continue
		}
		totals[int(l.Slot)-1] += w.Weight(l.Tag)
	}
	return totals
}
