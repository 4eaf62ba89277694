package schedule

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/metrics"
)

// Localizer converts a civil wall-clock time on a calendar date, in a named
// timezone, into an absolute instant. The civil timezone is always an explicit
// argument; the only configuration the Localizer carries is the fixed UTC
// offset used when zone data cannot be loaded.
type Localizer struct {
	fallbackOffsetSec int
	log               zerolog.Logger
}

// NewLocalizer creates a Localizer whose degraded mode approximates civil time
// with a fixed UTC offset of fallbackOffsetHours
func NewLocalizer(fallbackOffsetHours int, log zerolog.Logger) *Localizer {
	return &Localizer{
		fallbackOffsetSec: fallbackOffsetHours * 3600,
		log:               log,
	}
}

// Localize maps (date, hour:minute, tz) to the instant at which that wall
// clock reads in the named zone, using the UTC offset in force on that
// specific date. The same wall-clock time therefore maps to different
// instants on either side of a DST transition.
//
// If the zone database has no entry for tz, the configured fixed offset is
// used instead and a degraded-mode warning is logged; Localize never fails.
// Deterministic and idempotent: identical arguments yield identical instants.
func (l *Localizer) Localize(date time.Time, hour, minute int, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		l.log.Warn().
			Str("timezone", tz).
			Err(err).
			Msg("timezone data unavailable, degrading to fixed-offset arithmetic")
		metrics.ScheduleFallbacks.WithLabelValues("timezone").Inc()
		loc = l.FallbackZone()
	}

	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// FallbackZone returns the fixed-offset zone used in degraded mode
func (l *Localizer) FallbackZone() *time.Location {
	return time.FixedZone("fallback", l.fallbackOffsetSec)
}

// ParseTimeOfDay splits a rule's "HH:MM" civil time into its components
func ParseTimeOfDay(timeOfDay string) (hour, minute int, err error) {
	t, err := time.Parse(domain.TimeOfDayLayout, timeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing time of day %q: %w", timeOfDay, err)
	}
	return t.Hour(), t.Minute(), nil
}
