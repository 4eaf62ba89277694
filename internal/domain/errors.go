package domain

import (
	"errors"
	"fmt"
)

// ValidationError marks input that violates a domain invariant. Adapters
// detect it with errors.As and map it to an invalid-argument response.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// validationErrorf builds a ValidationError from a format string
func validationErrorf(format string, args ...any) error {
	return ValidationError(fmt.Sprintf(format, args...))
}

// Sentinel errors shared across use cases and adapters
var (
	// ErrRuleNotFound is returned when a rule ID has no stored row
	ErrRuleNotFound = errors.New("recurrence rule not found")

	// ErrNoPriceData is returned when a backtest is requested against an
	// absent or empty price series. This is a hard precondition of the
	// orchestrator; an empty matched sequence is NOT an error.
	ErrNoPriceData = errors.New("no price data available for backtest")

	// ErrRangeTooLarge is returned when a backtest range would produce more
	// execution dates than the configured cap allows
	ErrRangeTooLarge = errors.New("backtest range produces too many periods")
)
