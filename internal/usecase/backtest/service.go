package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/schedule"
)

// DefaultMaxPeriods bounds how many execution dates one simulation may
// enumerate, which in turn bounds the matcher's worst case against long
// series
const DefaultMaxPeriods = 5000

// Input describes the rule being simulated and the historical window to
// replay it over
type Input struct {
	Pair         string
	Cadence      domain.Cadence
	AnchorDate   time.Time // Defaults to RangeStart when zero
	TimeOfDay    string
	TimeZone     string
	MonthlyDay   int
	Contribution decimal.Decimal
	RangeStart   time.Time
	RangeEnd     time.Time
	Granularity  domain.Granularity
}

// Result pairs the aggregate summary with the per-step detail of one run
type Result struct {
	Summary domain.BacktestSummary
	Steps   []domain.BacktestStep
}

// Service orchestrates one simulation: enumerate execution dates, match each
// against the price series, fold the matches, derive the summary
type Service struct {
	Prices     domain.PriceSource
	localizer  *schedule.Localizer
	tolerance  time.Duration
	maxPeriods int
	log        zerolog.Logger
}

// NewService creates a backtest Service. A zero tolerance or maxPeriods
// selects the defaults (48h, 5000).
func NewService(prices domain.PriceSource, localizer *schedule.Localizer, tolerance time.Duration, maxPeriods int, log zerolog.Logger) *Service {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if maxPeriods <= 0 {
		maxPeriods = DefaultMaxPeriods
	}
	return &Service{
		Prices:     prices,
		localizer:  localizer,
		tolerance:  tolerance,
		maxPeriods: maxPeriods,
		log:        log,
	}
}

// Run fetches the price series for the input's pair and window, then computes
// the simulation. Fetching happens strictly before the pure computation.
func (s *Service) Run(ctx context.Context, input Input) (*Result, error) {
	series, err := s.Prices.Fetch(ctx, input.Pair, input.RangeStart, input.RangeEnd, input.Granularity)
	if err != nil {
		return nil, fmt.Errorf("fetching price series for %s: %w", input.Pair, err)
	}

	return s.Compute(input, series)
}

// Compute runs the simulation against a caller-supplied series. An absent or
// empty series is a hard precondition failure (ErrNoPriceData); an empty
// matched sequence is not an error, it yields an all-zero summary.
func (s *Service) Compute(input Input, series domain.PriceSeries) (*Result, error) {
	if len(series) == 0 {
		return nil, domain.ErrNoPriceData
	}

	// Immutable snapshot for this run: sorting produces a new view, the
	// caller's slice is never reordered in place.
	sorted := series.Sorted()

	rule := input.rule()
	targets, err := ExecutionDates(s.localizer, rule, input.RangeStart, input.RangeEnd, s.maxPeriods)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.PriceObservation, 0, len(targets))
	missed := 0
	for _, target := range targets {
		obs, ok := MatchObservation(sorted, target, s.tolerance)
		if !ok || !obs.Price.IsPositive() {
			// Missed execution: excluded from the step list, never an error
			missed++
			continue
		}
		matched = append(matched, obs)
	}

	last, _ := sorted.Last()
	steps, summary := Accumulate(input.Contribution, matched, last.Price)

	s.log.Debug().
		Str("pair", input.Pair).
		Int("targets", len(targets)).
		Int("periods", summary.Periods).
		Int("missed", missed).
		Msg("backtest computed")

	return &Result{Summary: summary, Steps: steps}, nil
}

// rule shapes the input as a RecurrenceRule for the execution-date generator
func (in Input) rule() *domain.RecurrenceRule {
	anchor := in.AnchorDate
	if anchor.IsZero() {
		anchor = in.RangeStart
	}
	return &domain.RecurrenceRule{
		Pair:         in.Pair,
		Cadence:      in.Cadence,
		AnchorDate:   anchor,
		TimeOfDay:    in.TimeOfDay,
		TimeZone:     in.TimeZone,
		MonthlyDay:   in.MonthlyDay,
		Contribution: in.Contribution,
	}
}
