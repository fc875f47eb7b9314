// Package harness executes declarative YAML scenarios against a fully
// wired set of state machines.
//
// Every run is deterministic: a fixed-epoch clock stamps timestamps and a
// sequential generator stamps nonces, so the same scenario produces the
// same envelopes, the same fingerprints and the same trace on every run.
// That determinism is what makes golden trace comparison possible.
//
// Each scenario is verified twice. First the steps run through the write
// path of a live world. Then the log those steps produced is replayed into
// a completely fresh world and the same assertions run again, proving that
// replay converges on the written state.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/QalbeHabib/autobase-smart-contract/internal/config"
	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/identity"
	"github.com/QalbeHabib/autobase-smart-contract/internal/inventory"
	"github.com/QalbeHabib/autobase-smart-contract/internal/ledger"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/oplog"
	"github.com/QalbeHabib/autobase-smart-contract/internal/perm"
	"github.com/QalbeHabib/autobase-smart-contract/internal/testutil"
	"github.com/QalbeHabib/autobase-smart-contract/internal/tokengate"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// epoch is the fixed starting millisecond for deterministic clocks.
const epoch = 1_700_000_000_000

// World is one complete wired instance: log, durable view, dispatcher and
// all five domain machines.
type World struct {
	Log        oplog.Log
	View       *view.View
	Dispatcher *dispatch.Dispatcher
	Identity   *identity.Registry
	Authority  *perm.Authority
	Ledger     *ledger.Ledger
	Inventory  *inventory.Inventory
	Gates      *tokengate.Gates
	Clock      *testutil.DeterministicClock
}

// NewWorld wires a world over the given log with deterministic time and
// nonces. Currency definitions seed the ledger's supply caps.
func NewWorld(viewPath string, log oplog.Log, currencies []ledger.Config) (*World, error) {
	v, err := view.Open(viewPath)
	if err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}

	clock := testutil.NewDeterministicClock(epoch)
	d := dispatch.New(log, v,
		dispatch.WithClock(clock),
		dispatch.WithNonceGenerator(testutil.NewSequenceNonceGenerator("test")),
	)

	w := &World{
		Log:        log,
		View:       v,
		Dispatcher: d,
		Clock:      clock,
	}
	w.Identity = identity.New(d)
	w.Authority = perm.New(d)
	w.Ledger = ledger.New(d, currencies...)
	w.Inventory = inventory.New(d)
	w.Gates = tokengate.New(d, w.Ledger)
	for _, m := range []dispatch.Machine{w.Identity, w.Authority, w.Ledger, w.Inventory, w.Gates} {
		d.Register(m)
	}
	return w, nil
}

// Close releases the world's dispatcher and view.
func (w *World) Close() {
	w.Dispatcher.Close()
	w.View.Close()
}

// TraceEvent is one projected record in the run's trace.
type TraceEvent struct {
	Seq       int64
	System    string
	OpType    string
	Timestamp int64
	Status    string
	Reason    string
}

// StepResult is the outcome of one submitted step.
type StepResult struct {
	Status string
	Reason string
}

// Result is the outcome of a scenario run.
type Result struct {
	Steps    []StepResult
	Trace    []TraceEvent
	Failures []string
}

// OK reports whether every expectation and assertion held.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario: steps through the live world, assertions, then
// a full replay into a fresh world and the assertions again.
func Run(s *Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var currencies []ledger.Config
	if s.Definitions != "" {
		defs, err := config.Parse(s.Definitions)
		if err != nil {
			return nil, err
		}
		currencies = defs.CurrencyConfigs()
	}

	dir, err := os.MkdirTemp("", "scenario-"+s.Name+"-")
	if err != nil {
		return nil, fmt.Errorf("run scenario: %w", err)
	}
	defer os.RemoveAll(dir)

	log := oplog.NewMemlog()
	live, err := NewWorld(filepath.Join(dir, "live.db"), log, currencies)
	if err != nil {
		return nil, err
	}
	defer live.Close()

	ctx := context.Background()
	result := &Result{}

	for i, step := range s.Steps {
		env, err := step.envelope()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		res, err := live.Dispatcher.Submit(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Steps = append(result.Steps, StepResult{
			Status: string(res.Status),
			Reason: res.Reason,
		})

		want := step.Expect
		if want == "" {
			want = string(dispatch.StatusSuccess)
		}
		if string(res.Status) != want {
			result.Failures = append(result.Failures, fmt.Sprintf(
				"step %d (%s/%s): status = %s (%s), want %s",
				i, step.System, step.Type, res.Status, res.Reason, want))
		}
		if step.Reason != "" && res.Reason != step.Reason {
			result.Failures = append(result.Failures, fmt.Sprintf(
				"step %d (%s/%s): reason = %q, want %q",
				i, step.System, step.Type, res.Reason, step.Reason))
		}
	}

	// The write path appends asynchronously; wait until every step's
	// envelope has landed before replaying.
	if err := waitForLength(ctx, log, len(s.Steps)); err != nil {
		return nil, err
	}

	if result.Trace, err = collectTrace(ctx, live.View); err != nil {
		return nil, err
	}

	for _, failure := range evalAssertions(ctx, s.Assertions, live) {
		result.Failures = append(result.Failures, "live: "+failure)
	}

	// Fresh world, same log: replay must converge on identical state.
	replayed, err := NewWorld(filepath.Join(dir, "replay.db"), log, currencies)
	if err != nil {
		return nil, err
	}
	defer replayed.Close()

	if err := replayed.Dispatcher.Replay(ctx); err != nil {
		return nil, err
	}
	for _, failure := range evalAssertions(ctx, s.Assertions, replayed) {
		result.Failures = append(result.Failures, "replay: "+failure)
	}

	return result, nil
}

// envelope builds the typed envelope from the step's wire-shaped fields.
func (st Step) envelope() (op.Envelope, error) {
	data := make(map[string]any, len(st.Args)+1)
	for k, v := range st.Args {
		data[k] = v
	}
	data["type"] = st.Type

	raw, err := json.Marshal(map[string]any{
		"system": st.System,
		"data":   data,
	})
	if err != nil {
		return op.Envelope{}, err
	}
	return op.Decode(raw)
}

// waitForLength polls the log until it holds want entries.
func waitForLength(ctx context.Context, l oplog.Log, want int) error {
	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := l.Len(ctx)
		if err != nil {
			return err
		}
		if n >= want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("log has %d entries, want %d", n, want)
		}
		time.Sleep(time.Millisecond)
	}
}

// collectTrace projects the view into the run's trace.
func collectTrace(ctx context.Context, v *view.View) ([]TraceEvent, error) {
	records, err := v.List(ctx, view.Filter{})
	if err != nil {
		return nil, err
	}

	trace := make([]TraceEvent, 0, len(records))
	for _, rec := range records {
		trace = append(trace, TraceEvent{
			Seq:       rec.Seq,
			System:    rec.System,
			OpType:    rec.OpType,
			Timestamp: rec.Time,
			Status:    rec.Status,
			Reason:    rec.Reason,
		})
	}
	return trace, nil
}
