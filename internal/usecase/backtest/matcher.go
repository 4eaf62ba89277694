package backtest

import (
	"sort"
	"time"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// DefaultTolerance is the staleness window applied when a target falls beyond
// the last observation and the caller did not configure one
const DefaultTolerance = 48 * time.Hour

// MatchObservation resolves a target instant against an ascending price
// series. The first observation at or after the target wins unconditionally:
// a target inside a weekend or holiday gap snaps forward to the next trading
// day. When the target lies beyond the last observation, the last observation
// is returned only while `target - last.Instant <= tolerance`; past that the
// match fails and the caller must skip the period rather than substitute a
// synthetic price.
func MatchObservation(series domain.PriceSeries, target time.Time, tolerance time.Duration) (domain.PriceObservation, bool) {
	if len(series) == 0 {
		return domain.PriceObservation{}, false
	}

	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Instant.Before(target)
	})
	if i < len(series) {
		return series[i], true
	}

	last := series[len(series)-1]
	if target.Sub(last.Instant) <= tolerance {
		return last, true
	}
	return domain.PriceObservation{}, false
}
