package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// stubMachine records every envelope routed to it.
type stubMachine struct {
	system  op.System
	applied []op.Envelope
	reject  string // when set, every Apply is rejected with this reason
	resets  int
}

func (s *stubMachine) System() op.System { return s.system }

func (s *stubMachine) Apply(env op.Envelope) Result {
	s.applied = append(s.applied, env)
	if s.reject != "" {
		return Rejected(s.reject)
	}
	return Applied()
}

func (s *stubMachine) Reset() {
	s.resets++
	s.applied = nil
}

// failingLog refuses every append while still serving reads.
type failingLog struct {
	*oplog.Memlog
}

func (f failingLog) Append(ctx context.Context, entry []byte) error {
	return errors.New("append refused")
}

func openTestView(t *testing.T) *view.View {
	t.Helper()
	v, err := view.Open(filepath.Join(t.TempDir(), "view.db"))
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

func setupDispatcher(t *testing.T, l oplog.Log) (*Dispatcher, *stubMachine) {
	t.Helper()
	d := New(l, openTestView(t))
	t.Cleanup(d.Close)
	m := &stubMachine{system: op.SystemCurrency}
	d.Register(m)
	return d, m
}

func mintEnv(to string, amount int64, ts int64, nonce string) op.Envelope {
	return op.Envelope{
		System:    op.SystemCurrency,
		Payload:   op.Mint{CurrencyID: "gold", To: to, Amount: amount, MinterID: "system"},
		Timestamp: ts,
		Nonce:     nonce,
	}
}

func waitForEntries(t *testing.T, l oplog.Log, want int) {
	t.Helper()
	ctx := context.Background()
	require.Eventually(t, func() bool {
		n, err := l.Len(ctx)
		return err == nil && n == want
	}, time.Second, time.Millisecond)
}

func TestSubmit_StampsTimestampAndNonce(t *testing.T) {
	l := oplog.NewMemlog()
	d, _ := setupDispatcher(t, l)
	ctx := context.Background()

	res, err := d.Submit(ctx, mintEnv("alice", 100, 0, ""))
	require.NoError(t, err)
	require.True(t, res.OK())

	waitForEntries(t, l, 1)
	raw, err := l.Get(ctx, 0)
	require.NoError(t, err)

	env, err := op.Decode(raw)
	require.NoError(t, err)
	assert.NotZero(t, env.Timestamp, "timestamp must be stamped before append")
	assert.NotEmpty(t, env.Nonce, "nonce must be stamped before append")
}

func TestSubmit_PreservesExplicitTimestampAndNonce(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)

	_, err := d.Submit(context.Background(), mintEnv("alice", 100, 42, "pinned"))
	require.NoError(t, err)

	require.Len(t, m.applied, 1)
	assert.Equal(t, int64(42), m.applied[0].Timestamp)
	assert.Equal(t, "pinned", m.applied[0].Nonce)
}

func TestSubmit_DeliveryAfterLocalApplyIsNoOp(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)
	ctx := context.Background()

	_, err := d.Submit(ctx, mintEnv("alice", 100, 0, ""))
	require.NoError(t, err)
	waitForEntries(t, l, 1)

	require.NoError(t, d.Update(ctx))
	assert.Len(t, m.applied, 1, "log round-trip must not re-apply the envelope")
}

func TestSubmit_RejectedOperationIsStillLogged(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)
	m.reject = "business rule says no"

	res, err := d.Submit(context.Background(), mintEnv("alice", 100, 0, ""))
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "business rule says no", res.Reason)

	// The failed attempt replicates so every node audits it.
	waitForEntries(t, l, 1)
}

func TestSubmit_FailedAppendKeepsLocalState(t *testing.T) {
	inner := oplog.NewMemlog()
	l := failingLog{Memlog: inner}
	v := openTestView(t)
	d := New(l, v)
	m := &stubMachine{system: op.SystemCurrency}
	d.Register(m)

	res, err := d.Submit(context.Background(), mintEnv("alice", 100, 0, ""))
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Len(t, m.applied, 1, "local apply survives the append failure")

	// Close flushes the append queue, so the failure has happened by now.
	d.Close()
	n, err := inner.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubmit_UnidentifiableEnvelopeNotAppended(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)

	// Mint with no recipient: no stable dedup identity. Every reader
	// would drop it before routing, so it must not reach the log.
	res, err := d.Submit(context.Background(), op.Envelope{
		System:  op.SystemCurrency,
		Payload: op.Mint{CurrencyID: "gold", Amount: 100},
	})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Empty(t, m.applied)

	// Close flushes the append queue, so anything enqueued is visible now.
	d.Close()
	n, err := l.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeliver_DuplicateAppliedOnce(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)
	ctx := context.Background()

	raw, err := op.Encode(mintEnv("alice", 100, 42, "n-1"))
	require.NoError(t, err)

	require.NoError(t, d.Deliver(ctx, raw))
	require.NoError(t, d.Deliver(ctx, raw))
	assert.Len(t, m.applied, 1)
}

func TestDeliver_NonceWidensDedupKey(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)
	ctx := context.Background()

	// Identical operation, identical millisecond, different nonces:
	// both must apply.
	first, err := op.Encode(mintEnv("alice", 100, 42, "n-1"))
	require.NoError(t, err)
	second, err := op.Encode(mintEnv("alice", 100, 42, "n-2"))
	require.NoError(t, err)

	require.NoError(t, d.Deliver(ctx, first))
	require.NoError(t, d.Deliver(ctx, second))
	assert.Len(t, m.applied, 2)
}

func TestDeliver_MalformedEntrySkipped(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)

	require.NoError(t, d.Deliver(context.Background(), []byte("not an envelope")))
	assert.Empty(t, m.applied)
}

func TestDeliver_UnregisteredSystemRejected(t *testing.T) {
	l := oplog.NewMemlog()
	v := openTestView(t)
	d := New(l, v)
	t.Cleanup(d.Close)

	raw, err := op.Encode(mintEnv("alice", 100, 42, "n-1"))
	require.NoError(t, err)
	// No machine registered: delivery is not an error, the envelope is
	// rejected and processing continues.
	require.NoError(t, d.Deliver(context.Background(), raw))
}

func TestDeliver_MissingIdentityFieldsDropped(t *testing.T) {
	l := oplog.NewMemlog()
	d, m := setupDispatcher(t, l)

	// Mint with no recipient: no stable dedup identity, so it is dropped
	// before routing.
	raw, err := op.Encode(op.Envelope{
		System:    op.SystemCurrency,
		Payload:   op.Mint{CurrencyID: "gold", Amount: 100},
		Timestamp: 42,
	})
	require.NoError(t, err)

	require.NoError(t, d.Deliver(context.Background(), raw))
	assert.Empty(t, m.applied)
}

func TestDeliver_ProjectsIntoView(t *testing.T) {
	l := oplog.NewMemlog()
	v := openTestView(t)
	d := New(l, v)
	t.Cleanup(d.Close)
	m := &stubMachine{system: op.SystemCurrency, reject: "no"}
	d.Register(m)
	ctx := context.Background()

	raw, err := op.Encode(mintEnv("alice", 100, 42, "n-1"))
	require.NoError(t, err)
	require.NoError(t, d.Deliver(ctx, raw))

	records, err := v.List(ctx, view.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(op.SystemCurrency), records[0].System)
	assert.Equal(t, op.TypeMint, records[0].OpType)
	assert.Equal(t, view.StatusFailed, records[0].Status)
	assert.Equal(t, "no", records[0].Reason)
}

func TestSetLog_DedupSuppressesReplayedEntries(t *testing.T) {
	first := oplog.NewMemlog()
	d, m := setupDispatcher(t, first)
	ctx := context.Background()

	shared, err := op.Encode(mintEnv("alice", 100, 42, "n-1"))
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, shared))
	require.NoError(t, d.Update(ctx))
	require.Len(t, m.applied, 1)

	// The replacement log carries the old entry plus a new one. Delivery
	// restarts from offset 0 but only the new entry applies.
	second := oplog.NewMemlog()
	require.NoError(t, second.Append(ctx, shared))
	fresh, err := op.Encode(mintEnv("bob", 50, 43, "n-2"))
	require.NoError(t, err)
	require.NoError(t, second.Append(ctx, fresh))

	d.SetLog(second)
	require.NoError(t, d.Update(ctx))
	require.Len(t, m.applied, 2)
	assert.Equal(t, "n-2", m.applied[1].Nonce)
}
