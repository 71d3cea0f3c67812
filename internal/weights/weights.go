// Package weights holds the expected win-probability added (eWPA) value of
// every event tag the classifier can emit.
package weights

import (
	"sort"

	"github.com/pable/clutchmetrics/internal/model"
)

// Option applies a configuration option to a Table under construction.
type Option func(map[model.Tag]float64)

// WithOverrides replaces or adds weights by tag name. Zero is a valid override.
func WithOverrides(overrides map[string]float64) Option {
	return func(m map[model.Tag]float64) {
		for tag, w := range overrides {
			m[model.Tag(tag)] = w
		}
	}
}

// Table is an immutable tag -> weight mapping. Build it once and share it.
type Table struct {
	weights map[model.Tag]float64
}

// New builds a table from the default weights with options applied on top.
func New(opts ...Option) *Table {
	m := defaults()
	for _, opt := range opts {
		opt(m)
	}
	return &Table{weights: m}
}

// FromMap builds a table from exactly the given weights, without defaults.
func FromMap(weights map[model.Tag]float64) *Table {
	m := make(map[model.Tag]float64, len(weights))
	for k, v := range weights {
		m[k] = v
	}
	return &Table{weights: m}
}

// Weight returns the tag's weight, or 0 for a tag the table does not know.
func (t *Table) Weight(tag model.Tag) float64 {
	return t.weights[tag]
}

// Has reports whether the tag has an explicit entry.
func (t *Table) Has(tag model.Tag) bool {
	_, ok := t.weights[tag]
	return ok
}

// Entry is one row of the table for display.
type Entry struct {
	Tag    model.Tag
	Weight float64
}

// Entries lists every weight ordered by family then tier.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.weights))
	for tag, w := range t.weights {
		out = append(out, Entry{Tag: tag, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := out[i].Tag.Family(), out[j].Tag.Family()
		if fi != fj {
			return fi < fj
		}
		return len(out[i].Tag) < len(out[j].Tag) || (len(out[i].Tag) == len(out[j].Tag) && out[i].Tag < out[j].Tag)
	})
	return out
}

func defaults() map[model.Tag]float64 {
	base, late, clutch := model.VariantBase, model.VariantLateClock, model.VariantClutchMargin
	return map[model.Tag]float64{
		model.FamilyAssist.Tag(base): 0.010,
		model.FamilyAssist.Tag(late): 0.020,
		model.FamilySteal.Tag(base):  0.022,
		model.FamilySteal.Tag(late):  0.044,
		model.FamilyBlock.Tag(base):  0.011,
		model.FamilyBlock.Tag(late):  0.022,

		model.FamilyTurnover.Tag(base): -0.021,
		model.FamilyTurnover.Tag(late): -0.042,

		// Blended rebound is the mean of the offensive and defensive weights.
		model.FamilyRebound.Tag(base):          0.0115,
		model.FamilyRebound.Tag(late):          0.020,
		model.FamilyOffensiveRebound.Tag(base): 0.018,
		model.FamilyOffensiveRebound.Tag(late): 0.028,
		model.FamilyDefensiveRebound.Tag(base): 0.005,
		model.FamilyDefensiveRebound.Tag(late): 0.012,

		model.FamilyMadeThree.Tag(base):     0.040,
		model.FamilyMadeThree.Tag(late):     0.050,
		model.FamilyMadeThree.Tag(clutch):   0.100,
		model.FamilyMissedThree.Tag(base):   -0.040,
		model.FamilyMissedThree.Tag(clutch): -0.100,
		model.FamilyMadeTwo.Tag(base):       0.020,
		model.FamilyMadeTwo.Tag(late):       0.030,
		model.FamilyMadeTwo.Tag(clutch):     0.060,
		model.FamilyMissedTwo.Tag(base):     -0.020,
		model.FamilyMissedTwo.Tag(clutch):   -0.060,

		model.FamilyMadeFreeThrow.Tag(base):   0.005,
		model.FamilyMadeFreeThrow.Tag(late):   0.010,
		model.FamilyMissedFreeThrow.Tag(base): -0.015,
		model.FamilyMissedFreeThrow.Tag(late): -0.030,
	}
}
