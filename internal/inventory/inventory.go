// Package inventory implements the resource state machine: non-currency
// countable items (seats, tickets, crafting materials) with explicit
// definitions, per-holder holdings and a full movement history.
//
// A resource must be created before it can be minted; minting grows current
// supply up to the configured cap, transfers move holdings without touching
// supply, and consumption destroys holdings and shrinks supply while
// recording why.
package inventory

import (
	"context"
	"fmt"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
)

// Resource is a registered resource definition plus its live supply.
// MaxSupply 0 means unlimited.
type Resource struct {
	ID            string
	Name          string
	Description   string
	MaxSupply     int64
	CurrentSupply int64
	CreatorID     string
}

// Movement is one attempted resource operation, applied or rejected.
type Movement struct {
	Type       string
	ResourceID string
	From       string
	To         string
	Amount     int64
	Actor      string
	Reason     string // consumption reason, not rejection reason
	Timestamp  int64
	Status     dispatch.Status
	Rejection  string
}

// MovementFilter selects movements conjunctively; zero fields match all.
type MovementFilter struct {
	ResourceID string
	From       string
	To         string
	Type       string
	Status     dispatch.Status
}

func (f MovementFilter) matches(m Movement) bool {
	if f.ResourceID != "" && m.ResourceID != f.ResourceID {
		return false
	}
	if f.From != "" && m.From != f.From {
		return false
	}
	if f.To != "" && m.To != f.To {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	return true
}

// Inventory is the resource domain state machine and its write path.
// Mutation happens only on the dispatcher's apply path.
type Inventory struct {
	d         *dispatch.Dispatcher
	resources map[string]*Resource
	holdings  map[string]map[string]int64 // resource -> holder -> amount
	history   []Movement
}

// New creates an inventory attached to the dispatcher.
func New(d *dispatch.Dispatcher) *Inventory {
	return &Inventory{
		d:         d,
		resources: make(map[string]*Resource),
		holdings:  make(map[string]map[string]int64),
	}
}

// System returns the resource tag.
func (inv *Inventory) System() op.System {
	return op.SystemResource
}

// Reset clears definitions, holdings and history ahead of a replay.
func (inv *Inventory) Reset() {
	inv.resources = make(map[string]*Resource)
	inv.holdings = make(map[string]map[string]int64)
	inv.history = nil
}

// Apply is the single transition function for resource operations.
func (inv *Inventory) Apply(env op.Envelope) dispatch.Result {
	switch p := env.Payload.(type) {
	case op.CreateResource:
		return inv.applyCreate(p, env.Timestamp)
	case op.MintResource:
		return inv.applyMint(p, env.Timestamp)
	case op.TransferResource:
		return inv.applyTransfer(p, env.Timestamp)
	case op.ConsumeResource:
		return inv.applyConsume(p, env.Timestamp)
	default:
		return dispatch.Rejected(fmt.Sprintf("unhandled resource payload %T", env.Payload))
	}
}

func (inv *Inventory) applyCreate(p op.CreateResource, ts int64) dispatch.Result {
	mv := Movement{
		Type:       op.TypeCreateResource,
		ResourceID: p.ResourceID,
		Actor:      p.CreatorID,
		Timestamp:  ts,
	}

	if p.MaxSupply < 0 {
		return inv.reject(mv, "invalid max supply")
	}
	if _, exists := inv.resources[p.ResourceID]; exists {
		return inv.reject(mv, "resource already exists")
	}

	inv.resources[p.ResourceID] = &Resource{
		ID:          p.ResourceID,
		Name:        p.Name,
		Description: p.Description,
		MaxSupply:   p.MaxSupply,
		CreatorID:   p.CreatorID,
	}
	inv.holdings[p.ResourceID] = make(map[string]int64)
	return inv.record(mv)
}

func (inv *Inventory) applyMint(p op.MintResource, ts int64) dispatch.Result {
	mv := Movement{
		Type:       op.TypeMintResource,
		ResourceID: p.ResourceID,
		To:         p.To,
		Amount:     p.Amount,
		Actor:      p.MinterID,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return inv.reject(mv, "invalid amount")
	}
	res, ok := inv.resources[p.ResourceID]
	if !ok {
		return inv.reject(mv, "unknown resource")
	}
	if res.MaxSupply > 0 && res.CurrentSupply+p.Amount > res.MaxSupply {
		return inv.reject(mv, "exceeds max supply")
	}

	inv.holdings[p.ResourceID][p.To] += p.Amount
	res.CurrentSupply += p.Amount
	return inv.record(mv)
}

func (inv *Inventory) applyTransfer(p op.TransferResource, ts int64) dispatch.Result {
	mv := Movement{
		Type:       op.TypeTransferResource,
		ResourceID: p.ResourceID,
		From:       p.From,
		To:         p.To,
		Amount:     p.Amount,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return inv.reject(mv, "invalid amount")
	}
	if _, ok := inv.resources[p.ResourceID]; !ok {
		return inv.reject(mv, "unknown resource")
	}
	held := inv.holdings[p.ResourceID]
	if held[p.From] < p.Amount {
		return inv.reject(mv, "insufficient holdings")
	}

	// Supply is untouched: a transfer only moves existing units.
	held[p.From] -= p.Amount
	held[p.To] += p.Amount
	return inv.record(mv)
}

func (inv *Inventory) applyConsume(p op.ConsumeResource, ts int64) dispatch.Result {
	mv := Movement{
		Type:       op.TypeConsumeResource,
		ResourceID: p.ResourceID,
		From:       p.From,
		Amount:     p.Amount,
		Reason:     p.Reason,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return inv.reject(mv, "invalid amount")
	}
	res, ok := inv.resources[p.ResourceID]
	if !ok {
		return inv.reject(mv, "unknown resource")
	}
	held := inv.holdings[p.ResourceID]
	if held[p.From] < p.Amount {
		return inv.reject(mv, "insufficient holdings")
	}

	held[p.From] -= p.Amount
	res.CurrentSupply -= p.Amount
	return inv.record(mv)
}

func (inv *Inventory) record(mv Movement) dispatch.Result {
	mv.Status = dispatch.StatusSuccess
	inv.history = append(inv.history, mv)
	return dispatch.Applied()
}

func (inv *Inventory) reject(mv Movement, reason string) dispatch.Result {
	mv.Status = dispatch.StatusFailed
	mv.Rejection = reason
	inv.history = append(inv.history, mv)
	return dispatch.Rejected(reason)
}

// CreateResource submits a resource definition through the write path.
func (inv *Inventory) CreateResource(ctx context.Context, resourceID, name, description string, maxSupply int64, creatorID string) (bool, error) {
	res, err := inv.d.Submit(ctx, op.Envelope{
		System: op.SystemResource,
		Payload: op.CreateResource{
			ResourceID:  resourceID,
			Name:        name,
			Description: description,
			MaxSupply:   maxSupply,
			CreatorID:   creatorID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("create resource: %w", err)
	}
	return res.OK(), nil
}

// MintResource submits a mint through the write path.
func (inv *Inventory) MintResource(ctx context.Context, resourceID, to string, amount int64, minterID string) (bool, error) {
	res, err := inv.d.Submit(ctx, op.Envelope{
		System:  op.SystemResource,
		Payload: op.MintResource{ResourceID: resourceID, To: to, Amount: amount, MinterID: minterID},
	})
	if err != nil {
		return false, fmt.Errorf("mint resource: %w", err)
	}
	return res.OK(), nil
}

// TransferResource submits a transfer through the write path.
func (inv *Inventory) TransferResource(ctx context.Context, resourceID, from, to string, amount int64) (bool, error) {
	res, err := inv.d.Submit(ctx, op.Envelope{
		System:  op.SystemResource,
		Payload: op.TransferResource{ResourceID: resourceID, From: from, To: to, Amount: amount},
	})
	if err != nil {
		return false, fmt.Errorf("transfer resource: %w", err)
	}
	return res.OK(), nil
}

// ConsumeResource submits a consumption through the write path.
func (inv *Inventory) ConsumeResource(ctx context.Context, resourceID, from string, amount int64, reason string) (bool, error) {
	res, err := inv.d.Submit(ctx, op.Envelope{
		System:  op.SystemResource,
		Payload: op.ConsumeResource{ResourceID: resourceID, From: from, Amount: amount, Reason: reason},
	})
	if err != nil {
		return false, fmt.Errorf("consume resource: %w", err)
	}
	return res.OK(), nil
}

// Resource returns a copy of the resource definition and live supply.
func (inv *Inventory) Resource(resourceID string) (Resource, bool) {
	res, ok := inv.resources[resourceID]
	if !ok {
		return Resource{}, false
	}
	return *res, true
}

// Holdings returns the amount of a resource held by an address.
func (inv *Inventory) Holdings(resourceID, holder string) int64 {
	held, ok := inv.holdings[resourceID]
	if !ok {
		return 0
	}
	return held[holder]
}

// HoldingsFor returns everything an address holds, keyed by resource ID.
// Resources the address does not hold (or holds zero of) are omitted.
func (inv *Inventory) HoldingsFor(holder string) map[string]int64 {
	out := make(map[string]int64)
	for resourceID, held := range inv.holdings {
		if amount := held[holder]; amount != 0 {
			out[resourceID] = amount
		}
	}
	return out
}

// Movements returns matching history entries in application order.
func (inv *Inventory) Movements(f MovementFilter) []Movement {
	var out []Movement
	for _, mv := range inv.history {
		if f.matches(mv) {
			out = append(out, mv)
		}
	}
	return out
}

// ForceInitialize replays the log into this machine (and its siblings).
func (inv *Inventory) ForceInitialize(ctx context.Context) error {
	return inv.d.ForceInitialize(ctx)
}
