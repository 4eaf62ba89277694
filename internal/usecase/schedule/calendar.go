// Package schedule computes when a recurrence rule fires next: pure calendar
// advancement, civil-time localization, and the forward-seeking scheduler
// built on top of both.
package schedule

import (
	"time"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// AdvanceDate returns the next calendar date a rule fires on after fromDate.
// Only the year/month/day of fromDate are read; the result is a civil date at
// midnight UTC carrying no timezone meaning of its own.
//
// DAILY moves one day, WEEKLY seven (preserving the weekday fixed by the
// anchor). MONTHLY moves to monthlyDay of the following month; because
// monthlyDay is capped at 28 every target date exists, so there is no
// month-length clamping here and there must never need to be.
func AdvanceDate(cadence domain.Cadence, fromDate time.Time, monthlyDay int) time.Time {
	y, m, d := fromDate.Date()

	switch cadence {
	case domain.CadenceWeekly:
		return time.Date(y, m, d+7, 0, 0, 0, 0, time.UTC)
	case domain.CadenceMonthly:
		// Month()+1 past December normalizes into January of the next year
		return time.Date(y, m+1, domain.ClampMonthlyDay(monthlyDay), 0, 0, 0, 0, time.UTC)
	default:
		// DAILY, and the forward-progress fallback for a cadence value the
		// closed set does not contain
		return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	}
}
