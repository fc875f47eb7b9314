package testutil

import (
	"fmt"
	"sync"
)

// FixedNonceGenerator returns predetermined nonces for testing.
//
// This enables deterministic fingerprints and golden trace comparison.
// Tests provide a known sequence and verify exact outputs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedNonceGenerator struct {
	mu     sync.Mutex
	nonces []string
	idx    int
}

// NewFixedNonceGenerator creates a generator that returns nonces in order.
//
// Panics when all nonces are consumed - a fail-fast approach to catch test
// misconfiguration (the test created more envelopes than expected).
func NewFixedNonceGenerator(nonces ...string) *FixedNonceGenerator {
	return &FixedNonceGenerator{nonces: nonces}
}

// Generate returns the next predetermined nonce.
func (g *FixedNonceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.nonces) {
		panic("FixedNonceGenerator: all nonces exhausted")
	}
	nonce := g.nonces[g.idx]
	g.idx++
	return nonce
}

// SequenceNonceGenerator returns "prefix-1", "prefix-2", ... without a
// preset bound. Used where the number of envelopes is not fixed up front.
type SequenceNonceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceNonceGenerator creates a sequential generator.
func NewSequenceNonceGenerator(prefix string) *SequenceNonceGenerator {
	return &SequenceNonceGenerator{prefix: prefix}
}

// Generate returns the next nonce in the sequence.
func (g *SequenceNonceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
