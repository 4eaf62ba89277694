package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cadence represents the recurrence family of a rule
type Cadence string

const (
	CadenceDaily   Cadence = "DAILY"
	CadenceWeekly  Cadence = "WEEKLY"
	CadenceMonthly Cadence = "MONTHLY"
)

// IsValid reports whether the cadence is a member of the closed set
func (c Cadence) IsValid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

const (
	// MonthlyDayMin and MonthlyDayMax bound the day-of-month for monthly rules.
	// Days 29-31 are deliberately disallowed: every month has a day 28, so no
	// month-length clamping is ever needed downstream.
	MonthlyDayMin = 1
	MonthlyDayMax = 28

	// TimeOfDayLayout is the civil wall-clock format used by rules
	TimeOfDayLayout = "15:04"
)

// RecurrenceRule represents a dollar-cost-averaging purchase rule in the domain layer
type RecurrenceRule struct {
	ID           uuid.UUID
	Pair         string // Asset symbol this rule buys (e.g. "VWCE", "BTC-EUR")
	Cadence      Cadence
	AnchorDate   time.Time
	TimeOfDay    string // Civil wall-clock "HH:MM" in TimeZone, NOT UTC
	TimeZone     string // IANA zone name the civil time is read in
	MonthlyDay   int    // Day of month for MONTHLY rules, always in [1,28]
	Contribution decimal.Decimal
	EndDate      *time.Time // Exclusive. NULL means the rule never expires.
	NextRunAt    *time.Time // Maintained by the service layer, NULL once expired
	CreatedAt    time.Time
}

// Validate ensures the rule adheres to domain rules
// Returns a ValidationError if validation fails
func (r *RecurrenceRule) Validate() error {
	if r.Pair == "" {
		return ValidationError("rule pair cannot be empty")
	}

	if !r.Cadence.IsValid() {
		return validationErrorf("cadence must be DAILY, WEEKLY, or MONTHLY, got %q", r.Cadence)
	}

	if _, err := time.Parse(TimeOfDayLayout, r.TimeOfDay); err != nil {
		return validationErrorf("time of day must be HH:MM, got %q", r.TimeOfDay)
	}

	if r.AnchorDate.IsZero() {
		return ValidationError("rule anchor date cannot be zero")
	}

	// MonthlyDay is only meaningful for MONTHLY rules
	if r.Cadence == CadenceMonthly {
		if r.MonthlyDay < MonthlyDayMin || r.MonthlyDay > MonthlyDayMax {
			return validationErrorf("monthly day must be between %d and %d, got %d",
				MonthlyDayMin, MonthlyDayMax, r.MonthlyDay)
		}
	}

	if !r.Contribution.GreaterThan(decimal.Zero) {
		return ValidationError("contribution must be positive")
	}

	// End date is exclusive and must leave room for at least one run
	if r.EndDate != nil && !r.EndDate.After(r.AnchorDate) {
		return ValidationError("end date must be after the anchor date")
	}

	return nil
}

// EffectiveMonthlyDay returns the day-of-month a MONTHLY rule fires on,
// defaulting to 1 and clamping out-of-range values into [1,28]. The core
// clamps rather than rejects so that a bad row received from storage can
// still be scheduled.
func (r *RecurrenceRule) EffectiveMonthlyDay() int {
	day := r.MonthlyDay
	if day == 0 {
		return MonthlyDayMin
	}
	return ClampMonthlyDay(day)
}

// ClampMonthlyDay forces a day-of-month into the [1,28] range
func ClampMonthlyDay(day int) int {
	if day < MonthlyDayMin {
		return MonthlyDayMin
	}
	if day > MonthlyDayMax {
		return MonthlyDayMax
	}
	return day
}
