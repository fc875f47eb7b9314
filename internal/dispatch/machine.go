package dispatch

import (
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
	"github.com/QalbeHabib/autobase-smart-contract/internal/view"
)

// Status is the outcome of a domain transition.
type Status string

const (
	// StatusSuccess means the transition was applied (including no-op
	// duplicates).
	StatusSuccess Status = view.StatusSuccess
	// StatusFailed means the transition was rejected by a business rule.
	StatusFailed Status = view.StatusFailed
)

// Result reports the outcome of applying one envelope.
// Business-rule failures are results, not errors: they are recorded for
// audit and never halt processing of subsequent envelopes.
type Result struct {
	Status Status
	Reason string
}

// Applied returns a success result.
func Applied() Result {
	return Result{Status: StatusSuccess}
}

// Rejected returns a failed result with an audit reason.
func Rejected(reason string) Result {
	return Result{Status: StatusFailed, Reason: reason}
}

// OK reports whether the transition was applied.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Machine is a domain state machine: one per system tag.
//
// Apply is the single transition function for the domain, invoked
// identically for local writes and for log replay - there is deliberately
// no second code path. Apply is only ever called from the dispatcher's
// apply path, so implementations need no internal locking for their
// mutable state.
type Machine interface {
	// System returns the tag this machine owns.
	System() op.System

	// Apply executes one transition. Validation failures are returned as
	// rejected results, never as panics or process-terminating errors.
	Apply(env op.Envelope) Result

	// Reset clears all in-memory state ahead of a full replay.
	Reset()
}
