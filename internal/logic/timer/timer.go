package timer

import "time"

// DefaultRateEpsilon keeps Rate finite for back-to-back calls.
const DefaultRateEpsilon = 0.001

// Timer measures the wall time elapsed between successive polls.
// Every call to Diff or Rate advances the baseline, so a Timer must have a
// single owner that polls it at most once per cycle.
type Timer struct {
	now     func() time.Time
	prev    time.Time
	hasPrev bool
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now (tests use a fake clock).
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

func New(opts ...Option) *Timer {
	t := &Timer{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Diff returns the seconds elapsed since the previous call. ok is false on
// the very first call, when there is no baseline yet. The current time
// always becomes the new baseline.
func (t *Timer) Diff() (seconds float64, ok bool) {
	now := t.now()
	if t.hasPrev {
		// Sub uses the monotonic reading when both values carry one.
		seconds = now.Sub(t.prev).Seconds()
		ok = true
	}
	t.prev = now
	t.hasPrev = true
	return seconds, ok
}

// Rate returns 1 / (Diff() + DefaultRateEpsilon).
func (t *Timer) Rate() (float64, bool) {
	return t.RateEpsilon(DefaultRateEpsilon)
}

// RateEpsilon returns 1 / (Diff() + epsilon), propagating the first-call absence.
func (t *Timer) RateEpsilon(epsilon float64) (float64, bool) {
	diff, ok := t.Diff()
	if !ok {
		return 0, false
	}
	return 1 / (diff + epsilon), true
}
