package modem

import "time"

// Clock is the monotonic time source bounding an exchange. Sleep is the
// engine's only suspension point while it waits for transport data.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock. time.Now carries a monotonic reading, so
// elapsed time is unaffected by clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
