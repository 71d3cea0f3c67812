// Package config defines the scoring and runtime configuration.
//
// Values are layered defaults < YAML file < CLUTCH_* environment variables.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Workers bounds the number of input partitions scored concurrently.
	Workers int `koanf:"workers"`

	// Pre-filter applied before classification.
	MinPeriod           int `koanf:"min_period"`
	MaxSecondsRemaining int `koanf:"max_seconds_remaining"`
	MaxAbsMargin        int `koanf:"max_abs_margin"`

	// LateClockSeconds is the exclusive upper bound of the late-clock window.
	LateClockSeconds int `koanf:"late_clock_seconds"`

	// Largest absolute margins at which a late shot earns the clutch-margin tier.
	ThreePointClutchMargin int `koanf:"three_point_clutch_margin"`
	TwoPointClutchMargin   int `koanf:"two_point_clutch_margin"`

	// Season phase multipliers.
	RegularSeasonMultiplier float64 `koanf:"regular_season_multiplier"`
	PlayoffsMultiplier      float64 `koanf:"playoffs_multiplier"`
	FinalsMultiplier        float64 `koanf:"finals_multiplier"`
	UnknownMultiplier       float64 `koanf:"unknown_multiplier"`

	// Weights overrides individual tag weights, e.g. "Assist (Late Clock)": 0.025.
	Weights map[string]float64 `koanf:"weights"`

	// RedisURL is the leaderboard publish target, e.g. redis://localhost:6379/0.
	RedisURL       string `koanf:"redis_url"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// LeaderboardLimit caps rows printed and published per phase.
	LeaderboardLimit int `koanf:"leaderboard_limit"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Workers:                 runtime.NumCPU(),
		MinPeriod:               4,
		MaxSecondsRemaining:     300,
		MaxAbsMargin:            6,
		LateClockSeconds:        10,
		ThreePointClutchMargin:  3,
		TwoPointClutchMargin:    2,
		RegularSeasonMultiplier: 1.0,
		PlayoffsMultiplier:      1.5,
		FinalsMultiplier:        2.0,
		UnknownMultiplier:       1.0,
		RedisURL:                "redis://localhost:6379/0",
		RedisKeyPrefix:          "clutch",
		LeaderboardLimit:        25,
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.MaxSecondsRemaining < 0:
		return fmt.Errorf("%w: max_seconds_remaining must be >= 0", ErrInvalidConfig)
	case c.MaxAbsMargin < 0:
		return fmt.Errorf("%w: max_abs_margin must be >= 0", ErrInvalidConfig)
	case c.LateClockSeconds < 1:
		return fmt.Errorf("%w: late_clock_seconds must be >= 1", ErrInvalidConfig)
	case c.ThreePointClutchMargin < 0 || c.TwoPointClutchMargin < 0:
		return fmt.Errorf("%w: clutch margins must be >= 0", ErrInvalidConfig)
	case c.LeaderboardLimit < 1:
		return fmt.Errorf("%w: leaderboard_limit must be >= 1", ErrInvalidConfig)
	}
	for name, m := range map[string]float64{
		"regular_season_multiplier": c.RegularSeasonMultiplier,
		"playoffs_multiplier":       c.PlayoffsMultiplier,
		"finals_multiplier":         c.FinalsMultiplier,
		"unknown_multiplier":        c.UnknownMultiplier,
	} {
		if m < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidConfig, name)
		}
	}
	return nil
}

// scoringParams are the fields that change pipeline output.
type scoringParams struct {
	MinPeriod    int
	MaxSeconds   int
	MaxAbsMargin int
	LateClock    int
	ThreeMargin  int
	TwoMargin    int
	Multipliers  [4]float64
	Weights      map[string]float64
}

// Fingerprint is a stable hash of every parameter that affects scoring output.
// Logging, worker count and publishing settings are excluded.
func (c *Config) Fingerprint() string {
	p := scoringParams{
		MinPeriod:    c.MinPeriod,
		MaxSeconds:   c.MaxSecondsRemaining,
		MaxAbsMargin: c.MaxAbsMargin,
		LateClock:    c.LateClockSeconds,
		ThreeMargin:  c.ThreePointClutchMargin,
		TwoMargin:    c.TwoPointClutchMargin,
		Multipliers:  [4]float64{c.RegularSeasonMultiplier, c.PlayoffsMultiplier, c.FinalsMultiplier, c.UnknownMultiplier},
		Weights:      c.Weights,
	}
	// encoding/json sorts map keys, so equal configs hash equally.
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
