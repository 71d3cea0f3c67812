package model

import "strings"

// Family is a tag without its situational variant, e.g. "Made 3-Point Shot".
type Family string

const (
	FamilyAssist           Family = "Assist"
	FamilySteal            Family = "Steal"
	FamilyBlock            Family = "Block"
	FamilyTurnover         Family = "Turnover"
	FamilyRebound          Family = "Rebound"
	FamilyOffensiveRebound Family = "Offensive Rebound"
	FamilyDefensiveRebound Family = "Defensive Rebound"
	FamilyMadeThree        Family = "Made 3-Point Shot"
	FamilyMissedThree      Family = "Missed 3-Point Shot"
	FamilyMadeTwo          Family = "Made 2-Point Shot"
	FamilyMissedTwo        Family = "Missed 2-Point Shot"
	FamilyMadeFreeThrow    Family = "Made Free Throw"
	FamilyMissedFreeThrow  Family = "Missed Free Throw"
)

// Variant is the situational tier appended to a family.
type Variant int

const (
	VariantBase Variant = iota
	VariantLateClock
	VariantClutchMargin
)

func (v Variant) suffix() string {
	switch v {
	case VariantLateClock:
		return " (Late Clock)"
	case VariantClutchMargin:
		return " (Clutch Margin)"
	default:
		return ""
	}
}

// Tag renders the family with the given variant.
func (f Family) Tag(v Variant) Tag {
	return Tag(string(f) + v.suffix())
}

// Family strips any variant suffix from the tag.
func (t Tag) Family() Family {
	s := string(t)
	if i := strings.Index(s, " ("); i >= 0 {
		s = s[:i]
	}
	return Family(s)
}

// IsFieldGoal reports whether the tag is a made or missed 2- or 3-point attempt.
func (t Tag) IsFieldGoal() bool {
	switch t.Family() {
	case FamilyMadeThree, FamilyMissedThree, FamilyMadeTwo, FamilyMissedTwo:
		return true
	}
	return false
}

// IsFreeThrow reports whether the tag is a made or missed free throw.
func (t Tag) IsFreeThrow() bool {
	f := t.Family()
	return f == FamilyMadeFreeThrow || f == FamilyMissedFreeThrow
}

// Points is the scoreboard value of a made shot tag, 0 otherwise.
func (t Tag) Points() int {
	switch t.Family() {
	case FamilyMadeThree:
		return 3
	case FamilyMadeTwo:
		return 2
	case FamilyMadeFreeThrow:
		return 1
	}
	return 0
}

// IsTurnover reports whether the tag is a turnover of any tier.
func (t Tag) IsTurnover() bool {
	return t.Family() == FamilyTurnover
}
