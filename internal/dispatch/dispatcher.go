package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dedup"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// Dispatcher routes envelopes from the shared log to domain machines and
// projects every outcome into the durable view.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine (the write path)
//   - Deliver()/Update()/Replay()/Run(): the apply path; serialized with
//     Submit through the dispatcher mutex so that all mutation remains a
//     single logical thread of control
//   - Domain read accessors stay lock-free because machines are only ever
//     mutated under this mutex
type Dispatcher struct {
	mu        sync.Mutex
	log       oplog.Log
	view      *view.View
	dedup     *dedup.Ledger
	machines  map[op.System]Machine
	nonces    NonceGenerator
	clock     Clock
	delivered int // next log index to deliver
	replayed  bool

	appendQ   chan pendingAppend
	closeOnce sync.Once
	done      chan struct{}
}

// pendingAppend carries the log the entry was accepted against, so a
// SetLog between enqueue and flush never redirects an old entry.
type pendingAppend struct {
	log   oplog.Log
	entry []byte
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNonceGenerator overrides the write-path nonce generator.
// Tests use fixed generators for deterministic fingerprints.
func WithNonceGenerator(g NonceGenerator) Option {
	return func(d *Dispatcher) {
		d.nonces = g
	}
}

// WithClock overrides the write-path timestamp source.
func WithClock(c Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// New creates a dispatcher over the given log and durable view.
// Machines are attached with Register before any envelope flows.
func New(l oplog.Log, v *view.View, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:      l,
		view:     v,
		dedup:    dedup.New(),
		machines: make(map[op.System]Machine),
		nonces:   UUIDv7Generator{},
		clock:    SystemClock{},
		appendQ:  make(chan pendingAppend, 256),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.appendLoop()
	return d
}

// appendLoop drains the write-path append queue one entry at a time,
// preserving the order in which local applies happened. Failed appends are
// logged and dropped; local state is never rolled back.
func (d *Dispatcher) appendLoop() {
	defer close(d.done)
	for p := range d.appendQ {
		if err := p.log.Append(context.Background(), p.entry); err != nil {
			slog.Error("log append failed", "error", err)
		}
	}
}

// Close stops the background appender after flushing queued entries.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.appendQ) })
	<-d.done
}

// Register attaches a domain machine. Registering a second machine for the
// same system replaces the first; this only happens in tests.
func (d *Dispatcher) Register(m Machine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.machines[m.System()] = m
}

// SetLog rebinds the dispatcher to a new log instance.
// A plain mutator: existing in-memory state is untouched. Delivery restarts
// from offset 0 on the new log; the dedup ledger suppresses anything that
// was already applied from the previous log.
func (d *Dispatcher) SetLog(l oplog.Log) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = l
	d.delivered = 0
}

// NewNonce allocates a fresh unique identifier.
// Domain write paths use this for room, channel and gate IDs so that tests
// can pin IDs through the same generator that pins nonces.
func (d *Dispatcher) NewNonce() string {
	return d.nonces.Generate()
}

// Submit is the write path: apply the envelope optimistically to local
// state, then append it to the shared log asynchronously.
//
// The local apply is synchronous, giving the caller read-your-write
// consistency before Submit returns. The append is fire-and-forget: a
// failed append is logged and does NOT roll back local state - an accepted
// inconsistency window between "applied locally" and "durably replicated".
//
// Missing timestamp and nonce are stamped here; the nonce widens the dedup
// key so that two identical operations in the same millisecond stay
// distinct. When the envelope later arrives back through the log, the
// dedup ledger turns the second application into a no-op.
//
// Rejected operations are appended too: every replica records the failed
// attempt, keeping the audit history identical everywhere.
func (d *Dispatcher) Submit(ctx context.Context, env op.Envelope) (Result, error) {
	if env.Timestamp == 0 {
		env.Timestamp = d.clock.Now()
	}
	if env.Nonce == "" {
		env.Nonce = d.nonces.Generate()
	}

	encoded, err := op.Encode(env)
	if err != nil {
		return Result{}, fmt.Errorf("submit: %w", err)
	}

	// An envelope with no dedup identity is dropped by every reader before
	// routing, so replicating it would only grow the log. Business rejects
	// do replicate: they carry an identity and every node audits them.
	_, identified := op.Fingerprint(env)

	// Enqueue under the same lock as the apply so the log receives
	// envelopes in local apply order.
	d.mu.Lock()
	res, err := d.applyLocked(ctx, env)
	if err == nil && identified {
		d.appendQ <- pendingAppend{log: d.log, entry: encoded}
	}
	d.mu.Unlock()
	return res, err
}

// Deliver applies one raw log entry. Called in log order by Update and
// Replay. Malformed entries are skipped, not fatal.
func (d *Dispatcher) Deliver(ctx context.Context, raw []byte) error {
	env, err := op.Decode(raw)
	if err != nil {
		if errors.Is(err, op.ErrMalformed) {
			slog.Debug("skipping malformed log entry", "error", err)
			return nil
		}
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.applyLocked(ctx, env)
	return err
}

// applyLocked is the single transition path. Callers hold d.mu.
func (d *Dispatcher) applyLocked(ctx context.Context, env op.Envelope) (Result, error) {
	key, ok := op.Fingerprint(env)
	if !ok {
		// Required fields missing: drop without routing or recording.
		slog.Warn("dropping envelope with missing identifying fields",
			"system", env.System,
		)
		return Rejected("missing required fields"), nil
	}

	if d.dedup.Seen(key) {
		// Duplicate delivery is a successful no-op, not an error.
		slog.Debug("duplicate envelope, skipping",
			"system", env.System,
			"dedup_key", key,
		)
		return Applied(), nil
	}

	m, ok := d.machines[env.System]
	if !ok {
		slog.Warn("no machine registered for system", "system", env.System)
		return Rejected("unhandled system"), nil
	}

	res := m.Apply(env)
	d.dedup.Record(key)

	encoded, err := op.Encode(env)
	if err != nil {
		return res, fmt.Errorf("apply: %w", err)
	}

	if _, err := d.view.Append(ctx, view.Record{
		DedupKey: key,
		System:   string(env.System),
		OpType:   env.Payload.Kind(),
		Time:     env.Timestamp,
		Payload:  string(encoded),
		Status:   string(res.Status),
		Reason:   res.Reason,
	}); err != nil {
		return res, fmt.Errorf("apply: append view: %w", err)
	}

	slog.Debug("envelope applied",
		"system", env.System,
		"op_type", env.Payload.Kind(),
		"status", res.Status,
		"reason", res.Reason,
	)

	return res, nil
}
