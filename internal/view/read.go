package view

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Filter narrows List results. Empty fields match everything; set fields
// are conjunctive.
type Filter struct {
	System string
	OpType string
	Status string
	Limit  int
}

// List returns records in apply order, oldest first.
func (v *View) List(ctx context.Context, f Filter) ([]Record, error) {
	query := `
		SELECT seq, dedup_key, system, op_type, ts, payload, status, reason
		FROM applied_ops
	`

	var conds []string
	var args []any
	if f.System != "" {
		conds = append(conds, "system = ?")
		args = append(args, f.System)
	}
	if f.OpType != "" {
		conds = append(conds, "op_type = ?")
		args = append(args, f.OpType)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Count returns the number of records in the view.
func (v *View) Count(ctx context.Context) (int, error) {
	var count int
	err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_ops`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// LastSeq returns the highest seq in the view, 0 if empty.
// Used on startup to resume without rescanning.
func (v *View) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := v.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM applied_ops
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// DedupKeys returns every recorded dedup key in apply order.
// Used to preload the in-memory dedup ledger after a restart so a partially
// advanced run never double-applies.
func (v *View) DedupKeys(ctx context.Context) ([]string, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT dedup_key FROM applied_ops ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list dedup keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan dedup key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dedup keys: %w", err)
	}

	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	err := rows.Scan(
		&rec.Seq,
		&rec.DedupKey,
		&rec.System,
		&rec.OpType,
		&rec.Time,
		&rec.Payload,
		&rec.Status,
		&rec.Reason,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}
