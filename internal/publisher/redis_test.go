package publisher

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/pable/clutchmetrics/internal/model"
)

func TestKeysAndMembers(t *testing.T) {
	p := NewRedisPublisherFromClient(nil, "")
	if got := p.PhaseKey("run1", model.PhaseFinals); got != "clutch:run1:finals" {
		t.Errorf("PhaseKey: %q", got)
	}
	if got := p.TotalKey("run1"); got != "clutch:run1:total" {
		t.Errorf("TotalKey: %q", got)
	}
	if got := p.LatestKey(); got != "clutch:latest" {
		t.Errorf("LatestKey: %q", got)
	}

	m := Member(2544, "LeBron James: The King")
	id, name, err := ParseMember(m)
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if id != 2544 || name != "LeBron James: The King" {
		t.Errorf("round trip gave %d %q", id, name)
	}

	for _, bad := range []string{"noseparator", "abc:Name"} {
		if _, _, err := ParseMember(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

// TestPublishIntegration needs a disposable Redis, e.g. CLUTCH_TEST_REDIS_URL=redis://localhost:6379/15.
func TestPublishIntegration(t *testing.T) {
	url := os.Getenv("CLUTCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CLUTCH_TEST_REDIS_URL not set")
	}
	prefix := "clutchtest-" + uuid.NewString()[:8]
	p, err := NewRedisPublisher(url, prefix)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	run := model.RunSummary{RunID: uuid.NewString(), Source: "test.csv"}
	recs := []model.PlayerClutchRecord{
		{PlayerID: 1, PlayerName: "Jones", Phase: model.PhaseFinals, AdjustedValue: 0.2},
		{PlayerID: 2, PlayerName: "Smith", Phase: model.PhaseFinals, AdjustedValue: 0.04},
		{PlayerID: 3, PlayerName: "Brown", Phase: model.PhaseFinals, AdjustedValue: 0.01},
		{PlayerID: 2, PlayerName: "Smith", Phase: model.PhasePlayoffs, AdjustedValue: -0.063},
	}
	totals := []model.PlayerTotal{{PlayerID: 1, PlayerName: "Jones", AdjustedValue: 0.2}}

	keys, err := p.Publish(ctx, run, recs, totals, 2)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	t.Cleanup(func() {
		p.client.Del(context.Background(), append(keys, p.LatestKey())...)
	})
	if len(keys) != 3 {
		t.Fatalf("expected playoffs, finals and total keys, got %v", keys)
	}

	top, err := p.Top(ctx, p.PhaseKey(run.RunID, model.PhaseFinals), 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].PlayerName != "Jones" || top[1].PlayerID != 2 {
		t.Errorf("unexpected finals leaderboard %+v", top)
	}

	latest, err := p.client.Get(ctx, p.LatestKey()).Result()
	if err != nil || latest != run.RunID {
		t.Errorf("latest run %q, %v", latest, err)
	}
}
