// Package dedup tracks which operations have already been applied so that
// replay and re-delivery are idempotent.
package dedup

// Ledger records dedup keys of applied envelopes.
//
// The ledger is owned by the apply dispatcher and, like all apply-path
// state, is mutated only from the single apply goroutine. It therefore
// needs no internal locking.
type Ledger struct {
	seen map[string]struct{}
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Seen reports whether the key has been recorded.
func (l *Ledger) Seen(key string) bool {
	_, ok := l.seen[key]
	return ok
}

// Record marks the key as applied. Recording an already-seen key is a no-op.
func (l *Ledger) Record(key string) {
	l.seen[key] = struct{}{}
}

// Reset forgets all recorded keys. Called before a full replay so that the
// replay itself is idempotent regardless of prior partial runs.
func (l *Ledger) Reset() {
	l.seen = make(map[string]struct{})
}

// Len returns the number of recorded keys.
func (l *Ledger) Len() int {
	return len(l.seen)
}
