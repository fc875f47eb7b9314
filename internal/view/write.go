package view

import (
	"context"
	"fmt"
)

// Operation outcome statuses as stored in the view. Every attempted state
// transition is recorded with one of these, never mutated afterwards.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one applied (or rejected) operation in the durable view.
type Record struct {
	Seq      int64
	DedupKey string
	System   string
	OpType   string
	Time     int64
	Payload  string // canonical envelope JSON
	Status   string
	Reason   string
}

// Append inserts a record into the view.
// Uses ON CONFLICT(dedup_key) DO NOTHING for idempotency - re-appending the
// same logical operation is silently ignored. Returns whether a row was
// actually inserted.
func (v *View) Append(ctx context.Context, rec Record) (inserted bool, err error) {
	res, err := v.db.ExecContext(ctx, `
		INSERT INTO applied_ops
		(dedup_key, system, op_type, ts, payload, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO NOTHING
	`,
		rec.DedupKey,
		rec.System,
		rec.OpType,
		rec.Time,
		rec.Payload,
		rec.Status,
		rec.Reason,
	)
	if err != nil {
		return false, fmt.Errorf("append record: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append record: %w", err)
	}
	return rows > 0, nil
}
