// Package testutil provides deterministic clock and nonce helpers so tests
// and the scenario harness produce identical envelopes - and therefore
// identical fingerprints and traces - on every run.
package testutil

import "sync"

// DeterministicClock hands out strictly increasing millisecond timestamps
// starting from a fixed epoch. Unlike the system clock it can be reset for
// test reuse.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch int64
	now   int64
}

// NewDeterministicClock creates a clock starting at the given epoch.
// The first call to Now() returns epoch + 1.
func NewDeterministicClock(epoch int64) *DeterministicClock {
	return &DeterministicClock{epoch: epoch, now: epoch}
}

// Now advances the clock by one millisecond and returns it.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// Reset rewinds the clock to its epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.epoch
}
