package engine

import "sync/atomic"

// Clock counts simulated ticks or cycles.
//
// The proc runtime advances it once per tick and the block runtime once per
// clock cycle. Time is purely logical: nothing in the simulation reads the
// wall clock, so replaying the same inputs lands on the same cycle numbers.
//
// Clock is safe for concurrent reads while a single goroutine advances it,
// which lets progress reporting observe a running simulation.
type Clock struct {
	cycle atomic.Int64
}

// NewClock creates a clock at cycle 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at the given cycle.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.cycle.Store(start)
	return c
}

// Advance moves to the next cycle and returns the cycle that just ended.
func (c *Clock) Advance() int64 {
	return c.cycle.Add(1) - 1
}

// Current returns the cycle in progress.
func (c *Clock) Current() int64 {
	return c.cycle.Load()
}

// Reset rewinds the clock to cycle 0.
func (c *Clock) Reset() {
	c.cycle.Store(0)
}
