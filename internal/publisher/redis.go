// Package publisher pushes stored leaderboards into Redis sorted sets so other
// services can read rankings without the SQLite store.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pable/clutchmetrics/internal/model"
)

// RunsStream receives one entry per published run.
const RunsStream = "clutch.runs"

// Entry is one ranked member read back from a leaderboard key.
type Entry struct {
	PlayerID   int64
	PlayerName string
	Score      float64
}

// RedisPublisher writes leaderboards under <prefix>:<runID>:<phase>.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(redisURL, prefix string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisPublisherFromClient(client, prefix), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "clutch"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// PhaseKey is the sorted set holding one phase of a run.
func (p *RedisPublisher) PhaseKey(runID string, phase model.SeasonPhase) string {
	return p.prefix + ":" + runID + ":" + phase.Slug()
}

// TotalKey is the sorted set holding the across-phase totals of a run.
func (p *RedisPublisher) TotalKey(runID string) string {
	return p.prefix + ":" + runID + ":total"
}

// LatestKey holds the ID of the most recently published run.
func (p *RedisPublisher) LatestKey() string {
	return p.prefix + ":latest"
}

// Member encodes a player as a sorted-set member, "<id>:<name>".
func Member(playerID int64, name string) string {
	return strconv.FormatInt(playerID, 10) + ":" + name
}

// ParseMember reverses Member.
func ParseMember(member string) (int64, string, error) {
	idStr, name, ok := strings.Cut(member, ":")
	if !ok {
		return 0, "", fmt.Errorf("malformed member %q", member)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed member %q: %w", member, err)
	}
	return id, name, nil
}

// runEvent is the JSON payload appended to RunsStream.
type runEvent struct {
	RunID  string   `json:"run_id"`
	Source string   `json:"source"`
	Keys   []string `json:"keys"`
}

// Publish replaces the run's leaderboard keys atomically. limit > 0 keeps only
// the top rows of each phase. It returns the keys written.
func (p *RedisPublisher) Publish(ctx context.Context, run model.RunSummary, recs []model.PlayerClutchRecord, totals []model.PlayerTotal, limit int) ([]string, error) {
	byPhase := make(map[model.SeasonPhase][]redis.Z)
	for _, r := range recs {
		if limit > 0 && len(byPhase[r.Phase]) >= limit {
			continue
		}
		byPhase[r.Phase] = append(byPhase[r.Phase], redis.Z{Score: r.AdjustedValue, Member: Member(r.PlayerID, r.PlayerName)})
	}
	var totalZ []redis.Z
	for _, t := range totals {
		if limit > 0 && len(totalZ) >= limit {
			break
		}
		totalZ = append(totalZ, redis.Z{Score: t.AdjustedValue, Member: Member(t.PlayerID, t.PlayerName)})
	}

	var keys []string
	for _, phase := range model.AllPhases() {
		if len(byPhase[phase]) > 0 {
			keys = append(keys, p.PhaseKey(run.RunID, phase))
		}
	}
	if len(totalZ) > 0 {
		keys = append(keys, p.TotalKey(run.RunID))
	}

	payload, err := json.Marshal(runEvent{RunID: run.RunID, Source: run.Source, Keys: keys})
	if err != nil {
		return nil, fmt.Errorf("encode run event: %w", err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, phase := range model.AllPhases() {
			members := byPhase[phase]
			if len(members) == 0 {
				continue
			}
			key := p.PhaseKey(run.RunID, phase)
			pipe.Del(ctx, key)
			pipe.ZAdd(ctx, key, members...)
		}
		if len(totalZ) > 0 {
			key := p.TotalKey(run.RunID)
			pipe.Del(ctx, key)
			pipe.ZAdd(ctx, key, totalZ...)
		}
		pipe.Set(ctx, p.LatestKey(), run.RunID, 0)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: RunsStream,
			Values: map[string]interface{}{
				"data":      string(payload),
				"timestamp": time.Now().Unix(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("publish leaderboard: %w", err)
	}
	return keys, nil
}

// Top reads the n highest-ranked members of a leaderboard key.
func (p *RedisPublisher) Top(ctx context.Context, key string, n int) ([]Entry, error) {
	zs, err := p.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard %s: %w", key, err)
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T", z.Member)
		}
		id, name, err := ParseMember(member)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{PlayerID: id, PlayerName: name, Score: z.Score})
	}
	return out, nil
}
