// Package pipeline runs the clutch and efficiency reductions over raw
// play-by-play rows: enrich, filter, classify, attribute, aggregate.
//
// Input is split into contiguous partitions scored concurrently. Each
// partition owns its accumulators and partials are merged in partition order,
// so a run's ranking does not depend on goroutine scheduling.
package pipeline

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pable/clutchmetrics/internal/aggregator"
	"github.com/pable/clutchmetrics/internal/attribution"
	"github.com/pable/clutchmetrics/internal/classifier"
	"github.com/pable/clutchmetrics/internal/config"
	"github.com/pable/clutchmetrics/internal/logger"
	"github.com/pable/clutchmetrics/internal/metrics"
	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/preprocess"
	"github.com/pable/clutchmetrics/internal/weights"
)

// rows scored between context checks
const cancelCheckEvery = 1024

// Options configures a run. The zero value is not usable; start from DefaultOptions.
type Options struct {
	Filter           preprocess.Filter
	LateClockSeconds int
	Classifier       *classifier.Classifier
	Weights          attribution.Weigher
	Multipliers      aggregator.Multipliers
	Workers          int

	Recorder *metrics.Recorder // may be nil
	Logger   logger.Logger     // nil logs nothing
}

// DefaultOptions uses the default filter, classifier, weights and multipliers on one worker.
func DefaultOptions() Options {
	return Options{
		Filter:           preprocess.DefaultFilter(),
		LateClockSeconds: preprocess.DefaultLateClockSeconds,
		Classifier:       classifier.New(),
		Weights:          weights.New(),
		Multipliers:      aggregator.DefaultMultipliers(),
		Workers:          1,
	}
}

// OptionsFromConfig builds run options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Filter: preprocess.Filter{
			MinPeriod:    cfg.MinPeriod,
			MaxSeconds:   cfg.MaxSecondsRemaining,
			MaxAbsMargin: cfg.MaxAbsMargin,
		},
		LateClockSeconds: cfg.LateClockSeconds,
		Classifier:       classifier.New(classifier.WithClutchMargins(cfg.ThreePointClutchMargin, cfg.TwoPointClutchMargin)),
		Weights:          weights.New(weights.WithOverrides(cfg.Weights)),
		Multipliers: aggregator.Multipliers{
			model.PhaseRegularSeason: cfg.RegularSeasonMultiplier,
			model.PhasePlayoffs:      cfg.PlayoffsMultiplier,
			model.PhaseFinals:        cfg.FinalsMultiplier,
			model.PhaseUnknown:       cfg.UnknownMultiplier,
		},
		Workers: cfg.Workers,
	}
}

// Stats counts what happened to the input rows.
type Stats struct {
	RowsRead       int
	RowsKept       int
	Filtered       map[string]int // reject reason -> rows
	ClockFailures  int
	MarginFailures int // non-empty SCOREMARGIN cells that did not parse
	Contributions  int
	Tags           map[model.Tag]int
	Partitions     int
}

func newStats() Stats {
	return Stats{Filtered: make(map[string]int), Tags: make(map[model.Tag]int)}
}

func (s *Stats) merge(o Stats) {
	s.RowsRead += o.RowsRead
	s.RowsKept += o.RowsKept
	s.ClockFailures += o.ClockFailures
	s.MarginFailures += o.MarginFailures
	s.Contributions += o.Contributions
	for k, v := range o.Filtered {
		s.Filtered[k] += v
	}
	for k, v := range o.Tags {
		s.Tags[k] += v
	}
}

// Result is the output of one run.
type Result struct {
	Clutch     []model.PlayerClutchRecord // AdjustedValue descending, ranked
	Totals     []model.PlayerTotal
	Efficiency []model.PlayerEfficiencyRecord // first-seen order
	Stats      Stats
}

type partial struct {
	clutch *aggregator.ClutchAccumulator
	eff    *aggregator.EfficiencyAccumulator
	stats  Stats
}

// Run scores events. The only error it returns is context cancellation.
func Run(ctx context.Context, events []model.RawEvent, opts Options) (*Result, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.New()
	}
	if opts.Weights == nil {
		opts.Weights = weights.New()
	}
	if opts.Multipliers == nil {
		opts.Multipliers = aggregator.DefaultMultipliers()
	}

	bounds := partitionBounds(len(events), opts.Workers)
	partials := make([]*partial, len(bounds))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bounds {
		g.Go(func() error {
			p, err := scorePartition(gctx, events[b[0]:b[1]], &opts)
			if err != nil {
				return err
			}
			partials[i] = p
			log.Debug(gctx, "partition scored",
				logger.Int("partition", i),
				logger.Int("rows", b[1]-b[0]),
				logger.Int("kept", p.stats.RowsKept))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	clutch := aggregator.NewClutchAccumulator()
	eff := aggregator.NewEfficiencyAccumulator()
	stats := newStats()
	for _, p := range partials {
		clutch.Merge(p.clutch)
		eff.Merge(p.eff)
		stats.merge(p.stats)
	}
	stats.Partitions = len(bounds)

	records := clutch.Records(opts.Multipliers)
	res := &Result{
		Clutch:     records,
		Totals:     aggregator.PlayerTotals(records),
		Efficiency: eff.Records(),
		Stats:      stats,
	}

	record(opts.Recorder, &stats, time.Since(start))
	log.Info(ctx, "pipeline run complete",
		logger.Int("rows_read", stats.RowsRead),
		logger.Int("rows_kept", stats.RowsKept),
		logger.Int("clock_failures", stats.ClockFailures),
		logger.Int("margin_failures", stats.MarginFailures),
		logger.Int("players", len(res.Totals)),
		logger.Int("partitions", stats.Partitions))
	return res, nil
}

func scorePartition(ctx context.Context, events []model.RawEvent, opts *Options) (*partial, error) {
	p := &partial{
		clutch: aggregator.NewClutchAccumulator(),
		eff:    aggregator.NewEfficiencyAccumulator(),
		stats:  newStats(),
	}
	for i := range events {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.stats.RowsRead++

		ev, reason := Prepare(events[i], opts)
		if !ev.ClockValid {
			p.stats.ClockFailures++
		}
		if !ev.MarginValid && strings.TrimSpace(ev.ScoreMargin) != "" {
			p.stats.MarginFailures++
		}
		if reason != preprocess.ReasonKept {
			p.stats.Filtered[reason]++
			continue
		}
		p.stats.RowsKept++

		classified := opts.Classifier.ClassifyEvent(ev)
		for _, l := range classified.Labels {
			p.stats.Tags[l.Tag]++
		}
		for _, c := range attribution.Attribute(&classified, opts.Weights) {
			p.clutch.Add(c)
			p.stats.Contributions++
		}
		p.eff.Add(&classified)
	}
	return p, nil
}

// Prepare enriches one row and reports the filter outcome, ReasonKept if it passes.
func Prepare(raw model.RawEvent, opts *Options) (model.EnrichedEvent, string) {
	ev := preprocess.Enrich(raw, opts.LateClockSeconds)
	return ev, opts.Filter.Check(&ev)
}

// Explain classifies and attributes a single row without filtering it.
func Explain(raw model.RawEvent, opts Options) (model.ClassifiedEvent, []model.Contribution) {
	if opts.Classifier == nil {
		opts.Classifier = classifier.New()
	}
	if opts.Weights == nil {
		opts.Weights = weights.New()
	}
	ev := opts.Classifier.ClassifyEvent(preprocess.Enrich(raw, opts.LateClockSeconds))
	return ev, attribution.Attribute(&ev, opts.Weights)
}

// partitionBounds splits n rows into at most workers contiguous [lo, hi) ranges.
// It always returns at least one range so an empty input still produces a result.
func partitionBounds(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return [][2]int{{0, n}}
	}
	size := (n + workers - 1) / workers
	bounds := make([][2]int, 0, workers)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		bounds = append(bounds, [2]int{lo, hi})
	}
	return bounds
}

func record(r *metrics.Recorder, s *Stats, d time.Duration) {
	if r == nil {
		return
	}
	r.AddRowsRead(s.RowsRead)
	r.AddRowsKept(s.RowsKept)
	for reason, n := range s.Filtered {
		r.AddRowsFiltered(reason, n)
	}
	r.AddParseFailures("clock", s.ClockFailures)
	r.AddParseFailures("margin", s.MarginFailures)
	for tag, n := range s.Tags {
		r.AddTag(string(tag), n)
	}
	r.AddContributions(s.Contributions)
	r.SetPartitions(s.Partitions)
	r.ObserveRun(d)
}
