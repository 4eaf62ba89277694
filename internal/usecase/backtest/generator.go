// Package backtest replays a recurrence rule against historical price data:
// it enumerates the instants the rule would have fired, matches each one to
// an acceptable price observation, and folds the matches into a performance
// report.
package backtest

import (
	"time"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/schedule"
)

// maxSeekSteps bounds the catch-up from a stale anchor to the range start so
// that a degenerate anchor (centuries before the range) cannot spin forever
const maxSeekSteps = 100000

// ExecutionDates enumerates every instant the rule would have fired inside
// (rangeStart, rangeEnd]. The seed is the anchor date localized at the rule's
// time of day; rangeStart plays the role of "now", with the scheduler's
// tie-break (an instant exactly at rangeStart counts as past and is advanced
// over). Emission stops once an instant passes rangeEnd or the candidate
// date reaches the rule's exclusive end date.
//
// The sequence is finite, strictly increasing, and a pure function of its
// inputs. Returns ErrRangeTooLarge when it would exceed maxPeriods entries.
func ExecutionDates(localizer *schedule.Localizer, rule *domain.RecurrenceRule, rangeStart, rangeEnd time.Time, maxPeriods int) ([]time.Time, error) {
	hour, minute, err := schedule.ParseTimeOfDay(rule.TimeOfDay)
	if err != nil {
		// Malformed time of day is rejected upstream; clamp to midnight
		// rather than fail if it reaches the core anyway.
		hour, minute = 0, 0
	}
	monthlyDay := rule.EffectiveMonthlyDay()

	candidate := rule.AnchorDate
	instant := localizer.Localize(candidate, hour, minute, rule.TimeZone)

	for i := 0; !instant.After(rangeStart); i++ {
		if i == maxSeekSteps {
			return nil, domain.ErrRangeTooLarge
		}
		candidate = schedule.AdvanceDate(rule.Cadence, candidate, monthlyDay)
		instant = localizer.Localize(candidate, hour, minute, rule.TimeZone)
	}

	var instants []time.Time
	for !instant.After(rangeEnd) && !pastEndDate(rule, candidate) {
		instants = append(instants, instant)
		if len(instants) > maxPeriods {
			return nil, domain.ErrRangeTooLarge
		}

		candidate = schedule.AdvanceDate(rule.Cadence, candidate, monthlyDay)
		instant = localizer.Localize(candidate, hour, minute, rule.TimeZone)
	}

	return instants, nil
}

// pastEndDate reports whether the candidate civil date is on or past the
// rule's exclusive end date
func pastEndDate(rule *domain.RecurrenceRule, candidate time.Time) bool {
	if rule.EndDate == nil {
		return false
	}
	cy, cm, cd := candidate.Date()
	ey, em, ed := rule.EndDate.Date()
	c := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return !c.Before(e)
}
