package oplog

import (
	"context"
	"fmt"
	"sync"
)

// Memlog is an in-memory, totally ordered log.
//
// Thread-safety is provided for external appending (write path goroutines)
// while the dispatcher's run loop reads. The signal channel is buffered with
// size 1 so multiple appends coalesce into a single wakeup, mirroring how a
// real transport batches remote updates.
type Memlog struct {
	mu      sync.Mutex
	entries [][]byte
	closed  bool
	signal  chan struct{}
}

// NewMemlog creates an empty in-memory log.
func NewMemlog() *Memlog {
	return &Memlog{
		entries: make([][]byte, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Append adds an entry at the tail. The entry is copied; callers may reuse
// the slice.
func (l *Memlog) Append(ctx context.Context, entry []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("memlog: append on closed log")
	}

	dup := make([]byte, len(entry))
	copy(dup, entry)
	l.entries = append(l.entries, dup)

	// Non-blocking signal - buffer of 1 coalesces multiple appends.
	select {
	case l.signal <- struct{}{}:
	default:
	}

	return nil
}

// Ready reports immediately: an in-memory log is always open.
func (l *Memlog) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of entries.
func (l *Memlog) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries), nil
}

// Get returns the entry at index.
func (l *Memlog) Get(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.entries) {
		return nil, fmt.Errorf("memlog: index %d out of range [0,%d)", index, len(l.entries))
	}
	return l.entries[index], nil
}

// Updates returns the coalescing signal channel.
func (l *Memlog) Updates() <-chan struct{} {
	return l.signal
}

// Close stops accepting appends and wakes any waiting consumer.
func (l *Memlog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}
