package testfixtures

import (
	"sync"
	"time"
)

var referenceTime = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical midnight used by fixtures. Booking
// fixtures express periods as hour offsets from it.
func ReferenceTime() time.Time {
	return referenceTime
}

// Hours returns [ReferenceTime+start h, ReferenceTime+end h).
func Hours(start, end int) (time.Time, time.Time) {
	return referenceTime.Add(time.Duration(start) * time.Hour), referenceTime.Add(time.Duration(end) * time.Hour)
}

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to the supplied time. When start is the
// zero value, ReferenceTime is used.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
