package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the sampling interval of a price series
type Granularity string

const (
	GranularityMinute Granularity = "MINUTE"
	GranularityHour   Granularity = "HOUR"
	GranularityDay    Granularity = "DAY"
)

// IsValid reports whether the granularity is a member of the closed set
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityMinute, GranularityHour, GranularityDay:
		return true
	}
	return false
}

// PriceObservation represents one closing price at an absolute instant
type PriceObservation struct {
	Instant time.Time
	Price   decimal.Decimal
}

// PriceSeries is a gap-tolerant sequence of observations, assumed ascending
// by instant. Weekends and holidays leave gaps; consumers snap forward.
type PriceSeries []PriceObservation

// Sorted returns the series ordered ascending by instant. If the series is
// already ordered it is returned as-is; otherwise a sorted copy is returned
// and the caller's slice is never mutated.
func (s PriceSeries) Sorted() PriceSeries {
	if sort.SliceIsSorted(s, func(i, j int) bool {
		return s[i].Instant.Before(s[j].Instant)
	}) {
		return s
	}

	sorted := make(PriceSeries, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Instant.Before(sorted[j].Instant)
	})
	return sorted
}

// Last returns the final observation of the series
// The boolean is false for an empty series
func (s PriceSeries) Last() (PriceObservation, bool) {
	if len(s) == 0 {
		return PriceObservation{}, false
	}
	return s[len(s)-1], true
}
