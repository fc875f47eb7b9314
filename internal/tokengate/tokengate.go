// Package tokengate implements currency-gated access: a gate names a
// currency and a minimum balance, and any address holding at least that
// much clears the gate.
package tokengate

import (
	"context"
	"fmt"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
)

// BalanceReader is the slice of the currency ledger a gate check needs.
type BalanceReader interface {
	BalanceOf(currencyID, address string) int64
}

// Gate is a registered access gate.
type Gate struct {
	ID         string
	CurrencyID string
	MinBalance int64
	CreatorID  string
}

// Gates is the token-gate domain state machine and its write path.
// Access checks read balances live, so a holder who spends below the
// threshold loses access without any gate-side bookkeeping.
type Gates struct {
	d        *dispatch.Dispatcher
	balances BalanceReader
	gates    map[string]Gate
}

// New creates the gate machine over the given balance source.
func New(d *dispatch.Dispatcher, balances BalanceReader) *Gates {
	return &Gates{
		d:        d,
		balances: balances,
		gates:    make(map[string]Gate),
	}
}

// System returns the token-gate tag.
func (g *Gates) System() op.System {
	return op.SystemTokenGated
}

// Reset clears all gates ahead of a replay.
func (g *Gates) Reset() {
	g.gates = make(map[string]Gate)
}

// Apply is the single transition function for gate operations.
func (g *Gates) Apply(env op.Envelope) dispatch.Result {
	p, ok := env.Payload.(op.CreateGate)
	if !ok {
		return dispatch.Rejected(fmt.Sprintf("unhandled tokenGated payload %T", env.Payload))
	}

	if p.MinBalance <= 0 {
		return dispatch.Rejected("invalid minimum balance")
	}
	if _, exists := g.gates[p.GateID]; exists {
		return dispatch.Rejected("gate already exists")
	}

	g.gates[p.GateID] = Gate{
		ID:         p.GateID,
		CurrencyID: p.CurrencyID,
		MinBalance: p.MinBalance,
		CreatorID:  p.CreatorID,
	}
	return dispatch.Applied()
}

// CreateGate submits a gate definition and returns the allocated gate ID.
func (g *Gates) CreateGate(ctx context.Context, currencyID string, minBalance int64, creatorID string) (string, bool, error) {
	gateID := g.d.NewNonce()
	res, err := g.d.Submit(ctx, op.Envelope{
		System: op.SystemTokenGated,
		Payload: op.CreateGate{
			GateID:     gateID,
			CurrencyID: currencyID,
			MinBalance: minBalance,
			CreatorID:  creatorID,
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("create gate: %w", err)
	}
	return gateID, res.OK(), nil
}

// Gate returns a gate definition.
func (g *Gates) Gate(gateID string) (Gate, bool) {
	gate, ok := g.gates[gateID]
	return gate, ok
}

// CheckAccess reports whether the address currently clears the gate.
// Unknown gates deny access.
func (g *Gates) CheckAccess(gateID, address string) bool {
	gate, ok := g.gates[gateID]
	if !ok {
		return false
	}
	return g.balances.BalanceOf(gate.CurrencyID, address) >= gate.MinBalance
}

// ForceInitialize replays the log into this machine (and its siblings).
func (g *Gates) ForceInitialize(ctx context.Context) error {
	return g.d.ForceInitialize(ctx)
}
