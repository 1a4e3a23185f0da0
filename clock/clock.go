// Package clock implements the Lamport logical clock kept by each simulated host
package clock

// A Clock is a monotonically non-decreasing logical counter.
//
// The zero value is a zeroed clock ready to use. A Clock is owned by a
// single goroutine (the peer's worker) and is not safe for concurrent
// mutation.
type Clock struct {
	counter uint64
}

// Value returns the current clock value
func (c *Clock) Value() uint64 {
	return c.counter
}

// Tick advances the clock by 1 for a local step and returns the new value
func (c *Clock) Tick() uint64 {
	c.counter++
	return c.counter
}

// TickReceive applies Lamport's receive rule, setting the clock to
// max{local, remote} + 1, and returns the new value
func (c *Clock) TickReceive(remote uint64) uint64 {
	if remote > c.counter {
		c.counter = remote
	}
	c.counter++
	return c.counter
}
