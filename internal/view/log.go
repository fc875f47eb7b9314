package view

import (
	"context"
	"fmt"
)

// ReplaySource adapts the view's stored payloads to the oplog read contract
// so state can be rebuilt offline, without the remote log transport. Only
// successfully applied operations are replayed; rejects are audit records,
// not state transitions.
//
// The source is a point-in-time snapshot: rows appended after construction
// are not visible.
type ReplaySource struct {
	payloads [][]byte
}

// NewReplaySource loads the applied payloads from the view.
func NewReplaySource(ctx context.Context, v *View) (*ReplaySource, error) {
	records, err := v.List(ctx, Filter{Status: StatusSuccess})
	if err != nil {
		return nil, fmt.Errorf("load replay source: %w", err)
	}

	payloads := make([][]byte, len(records))
	for i, rec := range records {
		payloads[i] = []byte(rec.Payload)
	}
	return &ReplaySource{payloads: payloads}, nil
}

// Append is not supported: the view is written by the apply path only.
func (s *ReplaySource) Append(ctx context.Context, entry []byte) error {
	return fmt.Errorf("replay source is read-only")
}

// Ready reports immediately: the snapshot is already in memory.
func (s *ReplaySource) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of applied payloads in the snapshot.
func (s *ReplaySource) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(s.payloads), nil
}

// Get returns the payload at index.
func (s *ReplaySource) Get(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.payloads) {
		return nil, fmt.Errorf("replay source: index %d out of range [0,%d)", index, len(s.payloads))
	}
	return s.payloads[index], nil
}
