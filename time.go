package magenta

import (
	"math"
	"time"

	"github.com/wippyai/magenta-go/errors"
	"github.com/wippyai/magenta-go/sys"
)

// CurrentTime reads the monotonic clock in nanoseconds.
func CurrentTime(s sys.System) sys.Time {
	return s.TimeGet(sys.ClockMonotonic)
}

// Nanosleep blocks the calling goroutine for d nanoseconds.
func Nanosleep(s sys.System, d sys.Time) error {
	return errors.FromStatus(errors.OpNanosleep, s.Nanosleep(d))
}

// DeadlineAfter returns the monotonic time d nanoseconds from now,
// saturating at sys.TimeInfinite.
func DeadlineAfter(s sys.System, d sys.Time) sys.Time {
	now := CurrentTime(s)
	if d >= sys.TimeInfinite-now {
		return sys.TimeInfinite
	}
	return now + d
}

// Timeout converts d to a relative wait timeout. Negative durations poll.
func Timeout(d time.Duration) sys.Time {
	if d <= 0 {
		return 0
	}
	if d == math.MaxInt64 {
		return sys.TimeInfinite
	}
	return sys.Time(d)
}
