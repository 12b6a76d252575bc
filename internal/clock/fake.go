package clock

import "time"

// FakeClock pins Now to a fixed instant so cycle resolution and charge
// generation can be tested against a known billing period.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC like every other
// timestamp in the system.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the pinned instant forward, e.g. to step a test into the
// next billing period.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
