package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pable/clutchmetrics/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars(t)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then the defaults are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MinPeriod, convey.ShouldEqual, 4)
				convey.So(cfg.MaxSecondsRemaining, convey.ShouldEqual, 300)
				convey.So(cfg.MaxAbsMargin, convey.ShouldEqual, 6)
				convey.So(cfg.LateClockSeconds, convey.ShouldEqual, 10)
				convey.So(cfg.FinalsMultiplier, convey.ShouldEqual, 2.0)
				convey.So(cfg.RedisKeyPrefix, convey.ShouldEqual, "clutch")
			})
		})

		convey.Convey("When loading with environment variables", func() {
			t.Setenv("CLUTCH_MAX_ABS_MARGIN", "10")
			t.Setenv("CLUTCH_WORKERS", "3")
			t.Setenv("CLUTCH_PLAYOFFS_MULTIPLIER", "1.25")

			cfg, err := config.Load("")

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxAbsMargin, convey.ShouldEqual, 10)
				convey.So(cfg.Workers, convey.ShouldEqual, 3)
				convey.So(cfg.PlayoffsMultiplier, convey.ShouldEqual, 1.25)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfigFile(t, `
late_clock_seconds: 24
three_point_clutch_margin: 4
weights:
  "Assist (Late Clock)": 0.03
`)
			t.Setenv("CLUTCH_LATE_CLOCK_SECONDS", "12")

			cfg, err := config.Load(path)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ThreePointClutchMargin, convey.ShouldEqual, 4)
				convey.So(cfg.LateClockSeconds, convey.ShouldEqual, 12)
				convey.So(cfg.Weights["Assist (Late Clock)"], convey.ShouldEqual, 0.03)
			})
		})

		convey.Convey("When CLUTCH_CONFIG points at a file", func() {
			path := writeConfigFile(t, "leaderboard_limit: 7\n")
			t.Setenv("CLUTCH_CONFIG", path)

			cfg, err := config.Load("")

			convey.Convey("Then that file is read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			t.Setenv("CLUTCH_WORKERS", "0")

			_, err := config.Load("")

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestFingerprint(t *testing.T) {
	convey.Convey("Given two default configs", t, func() {
		a, b := config.New(), config.New()

		convey.Convey("Then fingerprints match regardless of ambient settings", func() {
			b.Workers = a.Workers + 5
			b.LogLevel = "debug"
			b.RedisURL = "redis://elsewhere:6379/1"
			convey.So(a.Fingerprint(), convey.ShouldEqual, b.Fingerprint())
		})

		convey.Convey("Then a scoring change alters the fingerprint", func() {
			b.MaxAbsMargin = 8
			convey.So(a.Fingerprint(), convey.ShouldNotEqual, b.Fingerprint())
		})

		convey.Convey("Then weight overrides alter the fingerprint", func() {
			b.Weights = map[string]float64{"Steal": 0.05}
			convey.So(a.Fingerprint(), convey.ShouldNotEqual, b.Fingerprint())
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLUTCH_CONFIG",
		"CLUTCH_WORKERS",
		"CLUTCH_MAX_ABS_MARGIN",
		"CLUTCH_PLAYOFFS_MULTIPLIER",
		"CLUTCH_LATE_CLOCK_SECONDS",
		"CLUTCH_LEADERBOARD_LIMIT",
	} {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clutch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
