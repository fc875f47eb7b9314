// Package oplog defines the boundary to the externally supplied ordered,
// append-only operation log.
//
// The transport itself - durability, multi-writer merge, linearization - is
// an external collaborator. This package specifies only the contract the
// replication core consumes, plus an in-memory implementation used by tests
// and single-process runs.
package oplog

import "context"

// Log is the ordered, append-only operation log.
//
// The log guarantees that entries are totally ordered and that Get returns
// the same entry for the same index on every reader. Entries are opaque
// bytes; they may be envelope JSON or a JSON string wrapping it.
type Log interface {
	// Append adds an entry at the tail of the log.
	Append(ctx context.Context, entry []byte) error

	// Ready blocks until the log is open and readable.
	Ready(ctx context.Context) error

	// Len returns the number of entries currently known to this node.
	// Remote writers may have appended more; Len grows as they arrive.
	Len(ctx context.Context) (int, error)

	// Get returns the entry at index (0-based). Indexes below Len never
	// change or disappear.
	Get(ctx context.Context, index int) ([]byte, error)
}

// Notifier is implemented by logs that can signal new entries.
// The channel coalesces: one receive may cover several appends, so
// consumers re-check Len after every wakeup.
type Notifier interface {
	Updates() <-chan struct{}
}
