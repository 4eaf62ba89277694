package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleRepository defines the interface for recurrence rule persistence operations
type RuleRepository interface {
	// Create creates a new rule
	Create(ctx context.Context, rule *RecurrenceRule) error

	// GetByID retrieves a rule by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*RecurrenceRule, error)

	// List retrieves all rules, ordered by creation time
	List(ctx context.Context) ([]*RecurrenceRule, error)

	// Update replaces the stored rule
	Update(ctx context.Context, rule *RecurrenceRule) error

	// SetNextRun stores the next scheduled instant for a rule
	// A nil instant marks the rule as expired (no further runs)
	SetNextRun(ctx context.Context, id uuid.UUID, nextRunAt *time.Time) error
}

// PriceSource supplies an ordered price series for a symbol pair.
// Implementations must return observations ascending by instant; gaps from
// weekends and holidays are expected. The engine depends on this contract
// only, never on a concrete feed.
type PriceSource interface {
	Fetch(ctx context.Context, pair string, start, end time.Time, granularity Granularity) (PriceSeries, error)
}

// Clock supplies "now". Injected rather than read live so that scheduling
// stays deterministic under test.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time { return f() }
