// Package testutil provides the deterministic helpers scenario executors
// inject instead of ambient time and identity: a frozen clock and a seeded
// identifier generator. Reading wall time or random IDs inside a scenario
// would make every digest unique and the determinism check meaningless.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock is a virtualized clock that starts at a fixed instant and
// advances by a fixed step on every call.
//
// Two executions driven by equal FrozenClocks stamp identical timestamps,
// which keeps normalized traces byte-identical even before timestamp
// stripping.
//
// Thread-safety: all methods are safe for concurrent use.
type FrozenClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	tick int64
}

// NewFrozenClock creates a clock starting at base, advancing by step per
// call to Now.
func NewFrozenClock(base time.Time, step time.Duration) *FrozenClock {
	return &FrozenClock{base: base, step: step}
}

// Now returns the next instant: base + tick*step.
// The first call returns base.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.tick) * c.step)
	c.tick++
	return t
}

// Reset rewinds the clock to its base instant for test reuse.
func (c *FrozenClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
