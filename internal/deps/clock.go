package deps

import "time"

// Clock stamps events.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.At
}
