package schedule

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/metrics"
)

// maxCatchUpAdvances caps the forward seek for rules whose anchor has gone
// stale (e.g. a rule dormant for years). The cap keeps unbounded rules from
// causing unbounded work per call; hitting it trips the naive fallback.
const maxCatchUpAdvances = 1000

// Scheduler computes the next instant a recurrence rule fires, strictly after
// a supplied "now". It is a pure function over the rule plus the injected
// now; it performs no storage I/O.
type Scheduler struct {
	localizer *Localizer
	log       zerolog.Logger
}

// NewScheduler creates a Scheduler using the given Localizer
func NewScheduler(localizer *Localizer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		localizer: localizer,
		log:       log,
	}
}

// NextRunAt returns the next instant the rule fires strictly after now.
// An instant exactly equal to now counts as past.
//
// The anchor is the rule's reference date (the previous run, rolled forward
// by the fulfilment cycle), so the initial candidate is one cadence step past
// it. The candidate then keeps advancing until its localized instant is after
// now, bounded by maxCatchUpAdvances. Re-anchoring a rule on each returned
// instant therefore yields a strictly increasing sequence. Returns ok=false
// only when the rule's exclusive end date is reached before a future instant
// is found. Every other failure (unparseable time of day, cap exhausted)
// degrades to naive fixed-offset arithmetic so that scheduling always yields
// a forward-pointing instant.
func (s *Scheduler) NextRunAt(rule *domain.RecurrenceRule, now time.Time) (time.Time, bool) {
	hour, minute, err := ParseTimeOfDay(rule.TimeOfDay)
	if err != nil {
		s.log.Warn().
			Str("rule_id", rule.ID.String()).
			Err(err).
			Msg("unparseable time of day, degrading to naive scheduling")
		metrics.ScheduleFallbacks.WithLabelValues("time_of_day").Inc()
		return s.naiveNext(rule, now), true
	}

	candidate := AdvanceDate(rule.Cadence, rule.AnchorDate, rule.EffectiveMonthlyDay())
	if s.expired(rule, candidate) {
		return time.Time{}, false
	}

	instant := s.localizer.Localize(candidate, hour, minute, rule.TimeZone)
	for i := 0; !instant.After(now); i++ {
		if i == maxCatchUpAdvances {
			s.log.Warn().
				Str("rule_id", rule.ID.String()).
				Time("anchor", rule.AnchorDate).
				Msg("catch-up cap reached, degrading to naive scheduling")
			metrics.ScheduleFallbacks.WithLabelValues("catch_up_cap").Inc()
			return s.naiveNext(rule, now), true
		}

		candidate = AdvanceDate(rule.Cadence, candidate, rule.EffectiveMonthlyDay())
		if s.expired(rule, candidate) {
			return time.Time{}, false
		}
		instant = s.localizer.Localize(candidate, hour, minute, rule.TimeZone)
	}

	return instant, true
}

// expired reports whether the candidate civil date is on or past the rule's
// exclusive end date
func (s *Scheduler) expired(rule *domain.RecurrenceRule, candidate time.Time) bool {
	if rule.EndDate == nil {
		return false
	}
	return !dateOnly(candidate).Before(dateOnly(*rule.EndDate))
}

// naiveNext approximates the next run with fixed-offset arithmetic: the
// rule's wall-clock time on today's date in the fallback zone, stepped one
// cadence interval at a time until it passes now. Used only when proper
// localization cannot be trusted; it must still return an instant > now.
func (s *Scheduler) naiveNext(rule *domain.RecurrenceRule, now time.Time) time.Time {
	hour, minute, err := ParseTimeOfDay(rule.TimeOfDay)
	if err != nil {
		hour, minute = 0, 0
	}

	loc := s.localizer.FallbackZone()
	y, m, d := now.In(loc).Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, loc)

	for !next.After(now) {
		switch rule.Cadence {
		case domain.CadenceWeekly:
			next = next.AddDate(0, 0, 7)
		case domain.CadenceMonthly:
			next = next.AddDate(0, 1, 0)
		default:
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

// dateOnly truncates an instant to its civil date for date comparisons
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
