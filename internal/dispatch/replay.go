package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
)

// Update delivers all currently-known log entries that have not yet been
// applied, in order. Blocks until caught up. Safe to call repeatedly;
// already-delivered offsets are never revisited.
func (d *Dispatcher) Update(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drainLocked(ctx)
}

// Replay rebuilds all in-memory state from log offset 0.
//
// All machine state and the dedup ledger are reset first, so Replay is
// idempotent regardless of how many times it is invoked or how far a
// previous partial run advanced. The durable view is append-only and
// deduplicated on key, so re-projecting during replay writes nothing new.
func (d *Dispatcher) Replay(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replayLocked(ctx)
}

// ForceInitialize replays once. Subsequent calls are no-ops, making the
// initialization phase explicit and awaitable: callers complete it before
// issuing writes instead of racing a background timer.
func (d *Dispatcher) ForceInitialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.replayed {
		return nil
	}
	return d.replayLocked(ctx)
}

// PreloadDedup seeds the dedup ledger from the durable view.
// Used when resuming against a remote log so that entries already projected
// by a previous run are not applied twice before the first full replay.
func (d *Dispatcher) PreloadDedup(ctx context.Context) error {
	keys, err := d.view.DedupKeys(ctx)
	if err != nil {
		return fmt.Errorf("preload dedup: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		d.dedup.Record(key)
	}
	return nil
}

// Run starts the live delivery loop: an initial replay, then apply new
// entries as the log signals them. Blocks until the context is cancelled
// or the log is closed.
//
// The log must implement oplog.Notifier; logs that cannot signal updates
// are driven with explicit Update calls instead.
func (d *Dispatcher) Run(ctx context.Context) error {
	notifier, ok := d.log.(oplog.Notifier)
	if !ok {
		return fmt.Errorf("run: log does not support update notifications")
	}

	if err := d.log.Ready(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := d.ForceInitialize(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	slog.Info("dispatcher running")

	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopping: context cancelled")
			return ctx.Err()

		case _, open := <-notifier.Updates():
			if err := d.Update(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			if !open {
				slog.Info("dispatcher stopping: log closed")
				return nil
			}
		}
	}
}

// replayLocked resets state and drains from offset 0. Callers hold d.mu.
func (d *Dispatcher) replayLocked(ctx context.Context) error {
	if err := d.log.Ready(ctx); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	d.dedup.Reset()
	for _, m := range d.machines {
		m.Reset()
	}
	d.delivered = 0

	if err := d.drainLocked(ctx); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	d.replayed = true
	slog.Info("replay complete", "entries", d.delivered)
	return nil
}

// drainLocked applies entries from the last delivered offset through the
// log's current length. Callers hold d.mu.
//
// Entry-level failures (malformed JSON, view write errors) are logged and
// skipped so one bad entry never wedges delivery; transport failures
// (Len/Get) abort, since continuing would break the exactly-once, in-order
// contract.
func (d *Dispatcher) drainLocked(ctx context.Context) error {
	for {
		n, err := d.log.Len(ctx)
		if err != nil {
			return fmt.Errorf("log length: %w", err)
		}
		if d.delivered >= n {
			return nil
		}

		for d.delivered < n {
			raw, err := d.log.Get(ctx, d.delivered)
			if err != nil {
				return fmt.Errorf("log get %d: %w", d.delivered, err)
			}
			offset := d.delivered
			d.delivered++

			env, err := op.Decode(raw)
			if err != nil {
				slog.Debug("skipping malformed log entry",
					"offset", offset,
					"error", err,
				)
				continue
			}

			if _, err := d.applyLocked(ctx, env); err != nil {
				// Log with full envelope context and continue:
				// retries would cause non-deterministic replay.
				slog.Error("envelope processing failed",
					"error", err,
					"offset", offset,
					"system", env.System,
					"op_type", env.Payload.Kind(),
					"timestamp", env.Timestamp,
				)
			}
		}
	}
}
