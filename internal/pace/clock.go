// Package pace implements the traffic pacer that produces the controlled
// rate stimulus a measurement run correlates: a dedicated worker dequeues
// outbound packets and transmits them either greedily or at a constant bit
// rate using cycle-accurate busy-wait scheduling.
package pace

import "time"

// Clock is the monotonic cycle counter the pacer schedules against.
// Busy-wait pacing polls it directly; precision depends on the counter
// being cheap to read and strictly monotonic.
type Clock interface {
	// Cycles returns the current cycle count.
	Cycles() uint64

	// Hz returns the counter frequency in cycles per second.
	Hz() uint64
}

// monotonicClock counts nanoseconds of the runtime's monotonic clock, so
// one cycle is one nanosecond and Hz is 1e9.
type monotonicClock struct {
	base time.Time
}

// NewMonotonicClock returns a Clock backed by the runtime monotonic clock.
func NewMonotonicClock() Clock {
	return &monotonicClock{base: time.Now()}
}

func (c *monotonicClock) Cycles() uint64 {
	return uint64(time.Since(c.base))
}

func (c *monotonicClock) Hz() uint64 {
	return 1e9
}
