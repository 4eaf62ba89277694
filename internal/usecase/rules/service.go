// Package rules manages the lifecycle of recurrence rules: creation, update,
// and the fulfilment cycle that rolls a rule's anchor forward after each
// executed purchase.
package rules

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/metrics"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/schedule"
)

// Service handles recurrence rule operations
type Service struct {
	Repo      domain.RuleRepository
	Scheduler *schedule.Scheduler
	Clock     domain.Clock

	log zerolog.Logger
}

// NewService creates a new rules Service instance
func NewService(repo domain.RuleRepository, scheduler *schedule.Scheduler, clock domain.Clock, log zerolog.Logger) *Service {
	return &Service{
		Repo:      repo,
		Scheduler: scheduler,
		Clock:     clock,
		log:       log,
	}
}

// CreateRuleInput carries the fields needed to create a rule
type CreateRuleInput struct {
	Pair         string
	Cadence      domain.Cadence
	AnchorDate   time.Time
	TimeOfDay    string
	TimeZone     string
	MonthlyDay   int
	Contribution decimal.Decimal
	EndDate      *time.Time
}

// CreateRule validates the input, computes the first next-run instant, and
// persists the rule
func (s *Service) CreateRule(ctx context.Context, input CreateRuleInput) (*domain.RecurrenceRule, error) {
	rule := &domain.RecurrenceRule{
		ID:           uuid.New(),
		Pair:         input.Pair,
		Cadence:      input.Cadence,
		AnchorDate:   input.AnchorDate,
		TimeOfDay:    input.TimeOfDay,
		TimeZone:     input.TimeZone,
		MonthlyDay:   input.MonthlyDay,
		Contribution: input.Contribution,
		EndDate:      input.EndDate,
		CreatedAt:    s.Clock.Now(),
	}

	// Monthly rules default to firing on the 1st
	if rule.Cadence == domain.CadenceMonthly && rule.MonthlyDay == 0 {
		rule.MonthlyDay = domain.MonthlyDayMin
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	s.computeNextRun(rule)

	if err := s.Repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// GetRule retrieves a rule by ID
func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*domain.RecurrenceRule, error) {
	return s.Repo.GetByID(ctx, id)
}

// ListRules retrieves all rules
func (s *Service) ListRules(ctx context.Context) ([]*domain.RecurrenceRule, error) {
	return s.Repo.List(ctx)
}

// UpdateRule applies the input to an existing rule, recomputes its next-run
// instant, and persists the result
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, input CreateRuleInput) (*domain.RecurrenceRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.Pair = input.Pair
	rule.Cadence = input.Cadence
	rule.AnchorDate = input.AnchorDate
	rule.TimeOfDay = input.TimeOfDay
	rule.TimeZone = input.TimeZone
	rule.MonthlyDay = input.MonthlyDay
	rule.Contribution = input.Contribution
	rule.EndDate = input.EndDate

	if rule.Cadence == domain.CadenceMonthly && rule.MonthlyDay == 0 {
		rule.MonthlyDay = domain.MonthlyDayMin
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	s.computeNextRun(rule)

	if err := s.Repo.Update(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// MarkFulfilled rolls the rule forward after an executed purchase. The
// previous next-run instant becomes the new anchor, which is what keeps the
// scheduler's forward seek O(1) per cycle: each fulfilment hands the next
// computation a fresh anchor.
func (s *Service) MarkFulfilled(ctx context.Context, id uuid.UUID) (*domain.RecurrenceRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rule.NextRunAt != nil {
		rule.AnchorDate = civilDate(*rule.NextRunAt, rule.TimeZone)
	}

	s.computeNextRun(rule)

	if err := s.Repo.Update(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// computeNextRun updates rule.NextRunAt in place, clearing it once the rule
// has no further runs before its end date
func (s *Service) computeNextRun(rule *domain.RecurrenceRule) {
	next, ok := s.Scheduler.NextRunAt(rule, s.Clock.Now())
	if !ok {
		rule.NextRunAt = nil
		metrics.ScheduleComputations.WithLabelValues("expired").Inc()
		s.log.Info().Str("rule_id", rule.ID.String()).Msg("rule expired, no further runs")
		return
	}

	rule.NextRunAt = &next
	metrics.ScheduleComputations.WithLabelValues("scheduled").Inc()
}

// civilDate extracts the calendar date an instant falls on in the named zone
func civilDate(t time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
