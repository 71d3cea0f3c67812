package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/aggregator"
	"github.com/pable/clutchmetrics/internal/logger"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/publisher"
	"github.com/pable/clutchmetrics/internal/storage"
)

var (
	publishRedisURL string
	publishLimit    int
)

var publishCmd = &cobra.Command{
	Use:   "publish [run-prefix]",
	Short: "Publish a stored run's leaderboards to Redis",
	Long: `Write one sorted set per season phase plus an all-phase total for a stored run
(default: the latest run), point <prefix>:latest at it and append an entry to the
clutch.runs stream.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRedisURL, "redis-url", "", "Redis URL (default: redis_url from config)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "members per sorted set (default: leaderboard_limit)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.Named("publish")

	redisURL := cfg.RedisURL
	if publishRedisURL != "" {
		redisURL = publishRedisURL
	}
	if redisURL == "" {
		return fmt.Errorf("no Redis URL: set --redis-url, redis_url or CLUTCH_REDIS_URL")
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	var run *model.RunSummary
	if len(args) == 1 {
		run, err = db.GetRunByPrefix(args[0])
	} else {
		run, err = db.LatestRun()
	}
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		fmt.Fprintln(os.Stderr, "No matching run stored.")
		return nil
	}

	clutch, err := db.GetClutchRecords(run.RunID, storage.ClutchFilter{AnyPhase: true})
	if err != nil {
		return fmt.Errorf("get clutch records: %w", err)
	}

	pub, err := publisher.NewRedisPublisher(redisURL, cfg.RedisKeyPrefix)
	if err != nil {
		return err
	}
	defer pub.Close()

	keys, err := pub.Publish(ctx, *run, clutch, aggregator.PlayerTotals(clutch), topOrDefault(publishLimit))
	if err != nil {
		return err
	}
	log.Info(ctx, "run published",
		logger.String("run_id", run.RunID),
		logger.Int("keys", len(keys)))

	for _, k := range keys {
		fmt.Fprintln(os.Stdout, k)
	}
	return nil
}
