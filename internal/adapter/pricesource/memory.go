package pricesource

import (
	"context"
	"sync"
	"time"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// MemorySource serves price observations seeded in memory. Used by tests and
// local development; granularity is accepted for contract parity but the
// seeded series is returned whatever its sampling interval.
type MemorySource struct {
	mu     sync.RWMutex
	series map[string]domain.PriceSeries
}

// Compile-time interface check
var _ domain.PriceSource = (*MemorySource)(nil)

// NewMemorySource creates an empty MemorySource
func NewMemorySource() *MemorySource {
	return &MemorySource{
		series: make(map[string]domain.PriceSeries),
	}
}

// Seed replaces the stored series for a pair
func (s *MemorySource) Seed(pair string, series domain.PriceSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[pair] = series.Sorted()
}

// Fetch returns the seeded observations for the pair inside [start, end],
// ascending by instant. The result is always a fresh slice.
func (s *MemorySource) Fetch(_ context.Context, pair string, start, end time.Time, _ domain.Granularity) (domain.PriceSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.series[pair]
	out := make(domain.PriceSeries, 0, len(stored))
	for _, obs := range stored {
		if obs.Instant.Before(start) || obs.Instant.After(end) {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}
