package cpdlc

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source every timeout and timestamp computation in this
// module goes through, so tests can drive them deterministically. It wraps
// clockwork.Clock the way doublezero's internal/state.CollectorConfig does
// for its collector: production code gets a real clock by default, tests
// substitute a fake one and advance it explicitly.
type Clock = clockwork.Clock

// NewRealClock returns the wall-clock Clock used outside of tests.
func NewRealClock() Clock { return clockwork.NewRealClock() }

// UTCHourMinute returns the current UTC time of day, the "current UTC h:m"
// source spec 4.1 requires for stamping outgoing messages and position
// reports.
func UTCHourMinute(c Clock) (hour, minute int) {
	now := c.Now().UTC()
	return now.Hour(), now.Minute()
}

// FormatUTCHHMM renders the clock's current UTC time as an HH:MM string,
// the form used to populate Time arguments that mean "now".
func FormatUTCHHMM(c Clock) string {
	return c.Now().UTC().Format("15:04")
}

func defaultClock(c Clock) Clock {
	if c == nil {
		return clockwork.NewRealClock()
	}
	return c
}

// durationSince is a small helper kept distinct from c.Since so call sites
// read as "how long has it been" rather than bare clock arithmetic.
func durationSince(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
