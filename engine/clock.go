package engine

import "time"

// Clock is the monotonic millisecond source driving all burst deadlines.
// The counter may wrap around; consumers must compare timestamps through
// TicksDiff and never with absolute ordering.
type Clock interface {
	Millis() uint32
}

// TicksDiff returns the signed difference a-b of two wrapped millisecond
// timestamps. The unsigned subtraction followed by the signed conversion
// gives the correct result across the wrap boundary as long as the real
// distance is below ~24 days.
func TicksDiff(a, b uint32) int32 {
	return int32(a - b)
}

// Due reports whether deadline has been reached at time now. A clock
// anomaly that produces a non-positive distance counts as due rather
// than faulting.
func Due(now, deadline uint32) bool {
	return TicksDiff(now, deadline) >= 0
}

// SystemClock derives wrapped milliseconds from the process monotonic
// clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// ManualClock is a Clock whose time only moves when told to. Used by
// tests and the simulation to drive deterministic ticks.
type ManualClock struct {
	now uint32
}

func NewManualClock(start uint32) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Millis() uint32 {
	return c.now
}

// Advance moves the clock forward by ms milliseconds.
func (c *ManualClock) Advance(ms uint32) {
	c.now += ms
}

// Set jumps the clock to the given timestamp.
func (c *ManualClock) Set(ms uint32) {
	c.now = ms
}
