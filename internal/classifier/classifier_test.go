package classifier

import (
	"database/sql"
	"testing"

	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/preprocess"
	"github.com/pable/clutchmetrics/internal/weights"
)

// makeEvent builds an enriched 4th-quarter row with the given descriptions, clock and margin.
func makeEvent(eventType, actionType int64, home, visitor, clock, margin string) model.EnrichedEvent {
	raw := model.RawEvent{
		Period:             4,
		Clock:              clock,
		EventType:          sql.NullInt64{Int64: eventType, Valid: eventType != 0},
		ActionType:         sql.NullInt64{Int64: actionType, Valid: actionType != 0},
		HomeDescription:    home,
		VisitorDescription: visitor,
		Players: [3]model.Participant{
			{ID: 101, Name: "Jones"},
			{ID: 202, Name: "Smith"},
			{ID: 303, Name: "Brown"},
		},
		TeamID:       1610612737,
		ScoreMargin:  margin,
		WeekOfSeason: 10,
	}
	return preprocess.Enrich(raw, preprocess.DefaultLateClockSeconds)
}

func tags(labels []model.Label) map[model.Tag]model.Slot {
	out := make(map[model.Tag]model.Slot, len(labels))
	for _, l := range labels {
		out[l.Tag] = l.Slot
	}
	return out
}

func TestClassify_MadeThreeWithAssistInClutch(t *testing.T) {
	c := New()
	ev := makeEvent(1, 79, "JONES 3PT SHOT (24 PTS) (SMITH 5 AST)", "", "0:08", "2")

	got := tags(c.Classify(&ev))
	if len(got) != 2 {
		t.Fatalf("expected 2 labels, got %v", got)
	}
	clutch3 := model.FamilyMadeThree.Tag(model.VariantClutchMargin)
	if slot, ok := got[clutch3]; !ok || slot != model.SlotPrimary {
		t.Errorf("expected %q on primary slot, got %v", clutch3, got)
	}
	lateAssist := model.FamilyAssist.Tag(model.VariantLateClock)
	if slot, ok := got[lateAssist]; !ok || slot != model.SlotSecondary {
		t.Errorf("expected %q on secondary slot, got %v", lateAssist, got)
	}

	table := weights.New()
	if table.Weight(clutch3) <= table.Weight(model.FamilyMadeThree.Tag(model.VariantBase)) {
		t.Error("clutch-margin three should outweigh a plain made three")
	}
	if table.Weight(lateAssist) <= table.Weight(model.FamilyAssist.Tag(model.VariantBase)) {
		t.Error("late-clock assist should outweigh a plain assist")
	}
}

func TestClassify_ShotTiers(t *testing.T) {
	c := New()
	cases := []struct {
		name   string
		desc   string
		clock  string
		margin string
		want   model.Tag
	}{
		{"plain made three", "Jones 25' 3PT Jump Shot (3 PTS)", "2:00", "1", model.FamilyMadeThree.Tag(model.VariantBase)},
		{"late three outside clutch margin", "Jones 25' 3PT Jump Shot (3 PTS)", "0:05", "-5", model.FamilyMadeThree.Tag(model.VariantLateClock)},
		{"late three at margin bound", "Jones 25' 3PT Jump Shot (3 PTS)", "0:05", "-3", model.FamilyMadeThree.Tag(model.VariantClutchMargin)},
		{"late two at margin 3 is not clutch", "Jones 2' Layup (2 PTS)", "0:05", "3", model.FamilyMadeTwo.Tag(model.VariantLateClock)},
		{"late two tied", "Jones Driving Dunk (2 PTS)", "0:05", "TIE", model.FamilyMadeTwo.Tag(model.VariantClutchMargin)},
		{"missed three late and close", "MISS Jones 26' 3PT Jump Shot", "0:03", "1", model.FamilyMissedThree.Tag(model.VariantClutchMargin)},
		{"missed two late outside margin", "MISS Jones 15' Jump Shot", "0:03", "5", model.FamilyMissedTwo.Tag(model.VariantBase)},
		{"missed two early", "MISS Jones 15' Jump Shot", "1:30", "0", model.FamilyMissedTwo.Tag(model.VariantBase)},
		{"zero seconds is not late", "Jones 2' Layup (2 PTS)", "0:00", "1", model.FamilyMadeTwo.Tag(model.VariantBase)},
	}
	for _, tc := range cases {
		ev := makeEvent(1, 1, tc.desc, "", tc.clock, tc.margin)
		got := c.Classify(&ev)
		if len(got) != 1 || got[0].Tag != tc.want || got[0].Slot != model.SlotPrimary {
			t.Errorf("%s: got %v, want [%q PLAYER1]", tc.name, got, tc.want)
		}
	}
}

func TestClassify_ShotRequiresActionType(t *testing.T) {
	c := New()
	ev := makeEvent(1, 0, "Jones 25' 3PT Jump Shot (3 PTS)", "", "2:00", "1")
	got := c.Classify(&ev)
	if len(got) != 1 || got[0].Tag != model.TagOther {
		t.Errorf("shot without action type should fall back to Other, got %v", got)
	}
}

func TestClassify_NullEventTypeIsOther(t *testing.T) {
	c := New()
	ev := makeEvent(0, 79, "JONES 3PT SHOT (SMITH 5 AST)", "", "0:08", "2")
	got := c.Classify(&ev)
	if len(got) != 1 || got[0].Tag != model.TagOther || got[0].Slot != model.SlotNone {
		t.Errorf("expected only Other, got %v", got)
	}
}

func TestClassify_UnmatchedIsOther(t *testing.T) {
	c := New()
	ev := makeEvent(8, 0, "SUB: Jones FOR Smith", "", "1:00", "2")
	got := c.Classify(&ev)
	if len(got) != 1 || got[0].Tag != model.TagOther {
		t.Errorf("expected Other, got %v", got)
	}
}

func TestClassify_StealAndTurnover(t *testing.T) {
	c := New()
	ev := makeEvent(5, 1, "Jones Bad Pass Turnover (P1.T2)", "Smith STEAL (1 STL)", "0:09", "-1")
	got := tags(c.Classify(&ev))
	if slot := got[model.FamilyTurnover.Tag(model.VariantLateClock)]; slot != model.SlotPrimary {
		t.Errorf("expected late turnover on primary, got %v", got)
	}
	if slot := got[model.FamilySteal.Tag(model.VariantLateClock)]; slot != model.SlotSecondary {
		t.Errorf("expected late steal on secondary, got %v", got)
	}
	if len(got) != 2 {
		t.Errorf("expected exactly 2 labels, got %v", got)
	}
}

func TestClassify_ShotClockTurnoverIsNotAShot(t *testing.T) {
	c := New()
	ev := makeEvent(5, 11, "Jones Shot Clock Turnover (P2.T5)", "", "1:00", "2")
	got := c.Classify(&ev)
	if len(got) != 1 || got[0].Tag != model.FamilyTurnover.Tag(model.VariantBase) {
		t.Errorf("expected only a turnover, got %v", got)
	}
}

func TestClassify_BlockOnMissedShot(t *testing.T) {
	c := New()
	ev := makeEvent(2, 5, "MISS Jones 2' Layup", "Brown BLOCK (2 BLK)", "3:00", "4")
	got := tags(c.Classify(&ev))
	if got[model.FamilyBlock.Tag(model.VariantBase)] != model.SlotTertiary {
		t.Errorf("expected block on tertiary slot, got %v", got)
	}
	if got[model.FamilyMissedTwo.Tag(model.VariantBase)] != model.SlotPrimary {
		t.Errorf("expected missed two on primary slot, got %v", got)
	}
}

func TestClassify_ReboundNeedsParticipant(t *testing.T) {
	c := New()
	ev := makeEvent(4, 0, "", "Hawks Rebound", "1:00", "2")
	ev.Players = [3]model.Participant{}
	got := c.Classify(&ev)
	if len(got) != 1 || got[0].Tag != model.TagOther {
		t.Errorf("team rebound without a participant should be Other, got %v", got)
	}
}

func TestClassify_ReboundPossessionSplit(t *testing.T) {
	c := New()
	ev := makeEvent(4, 0, "Jones REBOUND (Off:1 Def:4)", "", "1:00", "2")

	got := c.Classify(&ev)
	if got[0].Tag != model.FamilyRebound.Tag(model.VariantBase) {
		t.Errorf("without possession context expected blended rebound, got %v", got)
	}

	ev.PossessionTeamID = ev.TeamID
	if got := c.Classify(&ev); got[0].Tag != model.FamilyOffensiveRebound.Tag(model.VariantBase) {
		t.Errorf("expected offensive rebound, got %v", got)
	}

	ev.PossessionTeamID = 42
	if got := c.Classify(&ev); got[0].Tag != model.FamilyDefensiveRebound.Tag(model.VariantBase) {
		t.Errorf("expected defensive rebound, got %v", got)
	}
}

func TestClassify_FreeThrows(t *testing.T) {
	c := New()

	made := makeEvent(3, 11, "Jones Free Throw 1 of 2 (20 PTS)", "", "0:04", "1")
	if got := c.Classify(&made); len(got) != 1 || got[0].Tag != model.FamilyMadeFreeThrow.Tag(model.VariantLateClock) {
		t.Errorf("expected late made free throw, got %v", got)
	}

	missed := makeEvent(3, 12, "", "MISS Smith Free Throw 2 of 2", "1:04", "1")
	if got := c.Classify(&missed); len(got) != 1 || got[0].Tag != model.FamilyMissedFreeThrow.Tag(model.VariantBase) {
		t.Errorf("expected missed free throw, got %v", got)
	}
}

func TestClassify_CaseInsensitiveAndWordBounded(t *testing.T) {
	c := New()

	lower := makeEvent(6, 0, "jones steal (1 stl)", "", "2:00", "1")
	if got := c.Classify(&lower); got[0].Tag != model.FamilySteal.Tag(model.VariantBase) {
		t.Errorf("lower-case steal not detected: %v", got)
	}

	// A name containing AST is not an assist marker.
	name := makeEvent(6, 0, "Castleton Foul", "", "2:00", "1")
	if got := c.Classify(&name); got[0].Tag != model.TagOther {
		t.Errorf("expected Other for a name containing AST, got %v", got)
	}
}

func TestClassify_CustomClutchMargins(t *testing.T) {
	c := New(WithClutchMargins(5, 4))
	ev := makeEvent(1, 1, "Jones 2' Layup (2 PTS)", "", "0:05", "-4")
	if got := c.Classify(&ev); got[0].Tag != model.FamilyMadeTwo.Tag(model.VariantClutchMargin) {
		t.Errorf("expected clutch margin two with widened margin, got %v", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New()
	ev := makeEvent(1, 79, "JONES 3PT SHOT (24 PTS) (SMITH 5 AST)", "Brown BLOCK", "0:08", "2")
	first := c.Classify(&ev)
	for i := 0; i < 10; i++ {
		again := c.Classify(&ev)
		if len(again) != len(first) {
			t.Fatalf("label count changed between calls")
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("label %d changed: %v vs %v", j, again[j], first[j])
			}
		}
	}
}
