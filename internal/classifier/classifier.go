// Package classifier maps enriched play-by-play rows to semantic event tags.
//
// Description rules are independent: every rule whose marker appears in either
// description fires, so one row can carry e.g. a made shot and its assist. Only
// the shot and free-throw branches make exclusive made/missed and 3PT/2PT decisions.
package classifier

import (
	"regexp"
	"strings"

	"github.com/pable/clutchmetrics/internal/model"
)

// Default clutch-margin limits for made shots in the late-clock window.
const (
	DefaultThreePointClutchMargin = 3
	DefaultTwoPointClutchMargin   = 2
)

// Markers matched against upper-cased descriptions.
var (
	markAssist    = regexp.MustCompile(`\bAST\b`)
	markSteal     = regexp.MustCompile(`\bSTEAL\b`)
	markBlock     = regexp.MustCompile(`\bBLOCK\b`)
	markTurnover  = regexp.MustCompile(`\bTURNOVER\b`)
	markRebound   = regexp.MustCompile(`\bREBOUND\b`)
	markThree     = regexp.MustCompile(`\b3PT\b`)
	markMiss      = regexp.MustCompile(`\bMISS\b`)
	markFreeThrow = regexp.MustCompile(`\bFREE THROW\b`)
	markTwo       = regexp.MustCompile(`\b(DUNK|LAYUP|SHOT)\b`)
	shotClock     = regexp.MustCompile(`\bSHOT CLOCK\b`)
)

// rule credits family to slot when marker appears in either description.
type rule struct {
	marker           *regexp.Regexp
	family           model.Family
	slot             model.Slot
	needsParticipant bool
	// refine may pick a more specific family from row context.
	refine func(ev *model.EnrichedEvent) model.Family
}

var descriptionRules = []rule{
	{marker: markAssist, family: model.FamilyAssist, slot: model.SlotSecondary},
	{marker: markSteal, family: model.FamilySteal, slot: model.SlotSecondary},
	{marker: markBlock, family: model.FamilyBlock, slot: model.SlotTertiary},
	{marker: markTurnover, family: model.FamilyTurnover, slot: model.SlotPrimary, needsParticipant: true},
	{marker: markRebound, family: model.FamilyRebound, slot: model.SlotPrimary, needsParticipant: true, refine: reboundSide},
}

// reboundSide splits rebounds when the row carries possession context.
func reboundSide(ev *model.EnrichedEvent) model.Family {
	if ev.PossessionTeamID == 0 || ev.TeamID == 0 {
		return model.FamilyRebound
	}
	if ev.TeamID == ev.PossessionTeamID {
		return model.FamilyOffensiveRebound
	}
	return model.FamilyDefensiveRebound
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClutchMargins sets the largest absolute margins at which a late made shot is a clutch-margin shot.
func WithClutchMargins(threePoint, twoPoint int) Option {
	return func(c *Classifier) {
		if threePoint >= 0 {
			c.threeMargin = threePoint
		}
		if twoPoint >= 0 {
			c.twoMargin = twoPoint
		}
	}
}

// Classifier is stateless after construction and safe for concurrent use.
type Classifier struct {
	threeMargin int
	twoMargin   int
}

// New creates a Classifier with the default clutch margins.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		threeMargin: DefaultThreePointClutchMargin,
		twoMargin:   DefaultTwoPointClutchMargin,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the labels for one row. The result is never empty.
func (c *Classifier) Classify(ev *model.EnrichedEvent) []model.Label {
	if !ev.EventType.Valid {
		return []model.Label{{Tag: model.TagOther, Slot: model.SlotNone}}
	}

	home := strings.ToUpper(ev.HomeDescription)
	visitor := strings.ToUpper(ev.VisitorDescription)
	either := func(re *regexp.Regexp) bool {
		return re.MatchString(home) || re.MatchString(visitor)
	}

	var labels []model.Label
	for _, r := range descriptionRules {
		if !either(r.marker) {
			continue
		}
		if r.needsParticipant && !ev.HasParticipant() {
			continue
		}
		family := r.family
		if r.refine != nil {
			family = r.refine(ev)
		}
		labels = append(labels, model.Label{Tag: family.Tag(lateVariant(ev)), Slot: r.slot})
	}

	missed := either(markMiss)
	if ev.ActionType.Valid {
		if tag, ok := c.shotTag(ev, either(markThree), isTwoPointer(home) || isTwoPointer(visitor), missed); ok {
			labels = append(labels, model.Label{Tag: tag, Slot: model.SlotPrimary})
		}
	}

	if either(markFreeThrow) {
		family := model.FamilyMadeFreeThrow
		if missed {
			family = model.FamilyMissedFreeThrow
		}
		labels = append(labels, model.Label{Tag: family.Tag(lateVariant(ev)), Slot: model.SlotPrimary})
	}

	if len(labels) == 0 {
		return []model.Label{{Tag: model.TagOther, Slot: model.SlotNone}}
	}
	return labels
}

// ClassifyEvent wraps Classify into a ClassifiedEvent.
func (c *Classifier) ClassifyEvent(ev model.EnrichedEvent) model.ClassifiedEvent {
	return model.ClassifiedEvent{EnrichedEvent: ev, Labels: c.Classify(&ev)}
}

func (c *Classifier) shotTag(ev *model.EnrichedEvent, three, two, missed bool) (model.Tag, bool) {
	var family model.Family
	var limit int
	switch {
	case three && missed:
		family, limit = model.FamilyMissedThree, c.threeMargin
	case three:
		family, limit = model.FamilyMadeThree, c.threeMargin
	case two && missed:
		family, limit = model.FamilyMissedTwo, c.twoMargin
	case two:
		family, limit = model.FamilyMadeTwo, c.twoMargin
	default:
		return "", false
	}

	clutch := ev.LateClock && ev.CloseMargin(limit)
	switch {
	case clutch:
		return family.Tag(model.VariantClutchMargin), true
	case ev.LateClock && !missed:
		return family.Tag(model.VariantLateClock), true
	default:
		// Missed shots have no late-clock tier.
		return family.Tag(model.VariantBase), true
	}
}

// isTwoPointer looks for a field-goal keyword in a description without a 3PT marker.
func isTwoPointer(desc string) bool {
	if desc == "" || markThree.MatchString(desc) {
		return false
	}
	return markTwo.MatchString(shotClock.ReplaceAllString(desc, ""))
}

func lateVariant(ev *model.EnrichedEvent) model.Variant {
	if ev.LateClock {
		return model.VariantLateClock
	}
	return model.VariantBase
}
