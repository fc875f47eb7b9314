// Package ledger implements the fungible currency state machine.
//
// Balances are keyed by (currency, address) and are always non-negative.
// For every currency, total supply equals the sum of mints minus the sum of
// burns and never exceeds the configured max supply. Transfers move value
// between addresses without changing supply.
//
// INVARIANT: after every applied operation, the sum of all balances of a
// currency equals its total supply.
package ledger

import (
	"context"
	"fmt"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
)

// Config describes a currency. Decimals is advisory display metadata only:
// amounts inside the ledger are integers in the smallest unit, never
// scaled. MaxSupply 0 means unlimited.
type Config struct {
	ID        string
	Name      string
	Symbol    string
	Decimals  int
	MaxSupply int64
}

// currency is the per-currency mutable state.
type currency struct {
	config      Config
	totalSupply int64
	balances    map[string]int64
}

// Ledger is the currency domain state machine and its write path.
//
// The mutable maps are owned exclusively by this instance and mutated only
// through Apply on the dispatcher's apply path. Read accessors are pure and
// rely on that confinement instead of locks.
type Ledger struct {
	d          *dispatch.Dispatcher
	defined    map[string]Config
	currencies map[string]*currency
	history    []Transaction
}

// New creates a ledger attached to the dispatcher. Definitions register
// the currencies with their supply caps; currencies referenced by the log
// but never defined are created lazily with unlimited supply.
func New(d *dispatch.Dispatcher, definitions ...Config) *Ledger {
	l := &Ledger{
		d:          d,
		defined:    make(map[string]Config, len(definitions)),
		currencies: make(map[string]*currency),
	}
	for _, def := range definitions {
		l.defined[def.ID] = def
	}
	return l
}

// DefineCurrency registers (or replaces) a currency definition.
// Definitions are configuration, not log state: they survive Reset.
func (l *Ledger) DefineCurrency(def Config) {
	l.defined[def.ID] = def
}

// System returns the currency tag.
func (l *Ledger) System() op.System {
	return op.SystemCurrency
}

// Reset clears balances, supplies and history ahead of a replay.
func (l *Ledger) Reset() {
	l.currencies = make(map[string]*currency)
	l.history = nil
}

// Apply is the single transition function, used identically by the local
// write path and by log replay.
func (l *Ledger) Apply(env op.Envelope) dispatch.Result {
	switch p := env.Payload.(type) {
	case op.Mint:
		return l.applyMint(p, env.Timestamp)
	case op.Transfer:
		return l.applyTransfer(p, env.Timestamp)
	case op.Burn:
		return l.applyBurn(p, env.Timestamp)
	default:
		return dispatch.Rejected(fmt.Sprintf("unhandled currency payload %T", env.Payload))
	}
}

func (l *Ledger) applyMint(p op.Mint, ts int64) dispatch.Result {
	tx := Transaction{
		Type:       op.TypeMint,
		CurrencyID: p.CurrencyID,
		To:         p.To,
		Amount:     p.Amount,
		Actor:      p.MinterID,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return l.reject(tx, "invalid amount")
	}

	cur := l.currencyFor(p.CurrencyID)
	if cur.config.MaxSupply > 0 && cur.totalSupply+p.Amount > cur.config.MaxSupply {
		return l.reject(tx, "exceeds max supply")
	}

	cur.balances[p.To] += p.Amount
	cur.totalSupply += p.Amount
	return l.record(tx)
}

func (l *Ledger) applyTransfer(p op.Transfer, ts int64) dispatch.Result {
	tx := Transaction{
		Type:       op.TypeTransfer,
		CurrencyID: p.CurrencyID,
		From:       p.From,
		To:         p.To,
		Amount:     p.Amount,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return l.reject(tx, "invalid amount")
	}

	cur := l.currencyFor(p.CurrencyID)
	if cur.balances[p.From] < p.Amount {
		return l.reject(tx, "insufficient balance")
	}

	// Debit and credit together - no partial transfer is ever observable.
	cur.balances[p.From] -= p.Amount
	cur.balances[p.To] += p.Amount
	return l.record(tx)
}

func (l *Ledger) applyBurn(p op.Burn, ts int64) dispatch.Result {
	tx := Transaction{
		Type:       op.TypeBurn,
		CurrencyID: p.CurrencyID,
		From:       p.From,
		Amount:     p.Amount,
		Actor:      p.BurnerID,
		Timestamp:  ts,
	}

	if p.Amount <= 0 {
		return l.reject(tx, "invalid amount")
	}

	cur := l.currencyFor(p.CurrencyID)
	if cur.balances[p.From] < p.Amount {
		return l.reject(tx, "insufficient balance")
	}

	cur.balances[p.From] -= p.Amount
	cur.totalSupply -= p.Amount
	return l.record(tx)
}

// currencyFor returns the currency state, creating it lazily on first
// reference.
func (l *Ledger) currencyFor(id string) *currency {
	if cur, ok := l.currencies[id]; ok {
		return cur
	}

	config, ok := l.defined[id]
	if !ok {
		config = Config{ID: id}
	}
	cur := &currency{
		config:   config,
		balances: make(map[string]int64),
	}
	l.currencies[id] = cur
	return cur
}

// Mint submits a mint through the write path. Returns the local business
// outcome; the asynchronous log append does not affect it.
func (l *Ledger) Mint(ctx context.Context, currencyID, to string, amount int64, minterID string) (bool, error) {
	res, err := l.d.Submit(ctx, op.Envelope{
		System:  op.SystemCurrency,
		Payload: op.Mint{CurrencyID: currencyID, To: to, Amount: amount, MinterID: minterID},
	})
	if err != nil {
		return false, fmt.Errorf("mint: %w", err)
	}
	return res.OK(), nil
}

// Transfer submits a transfer through the write path.
func (l *Ledger) Transfer(ctx context.Context, currencyID, from, to string, amount int64) (bool, error) {
	res, err := l.d.Submit(ctx, op.Envelope{
		System:  op.SystemCurrency,
		Payload: op.Transfer{CurrencyID: currencyID, From: from, To: to, Amount: amount},
	})
	if err != nil {
		return false, fmt.Errorf("transfer: %w", err)
	}
	return res.OK(), nil
}

// Burn submits a burn through the write path.
func (l *Ledger) Burn(ctx context.Context, currencyID, from string, amount int64, burnerID string) (bool, error) {
	res, err := l.d.Submit(ctx, op.Envelope{
		System:  op.SystemCurrency,
		Payload: op.Burn{CurrencyID: currencyID, From: from, Amount: amount, BurnerID: burnerID},
	})
	if err != nil {
		return false, fmt.Errorf("burn: %w", err)
	}
	return res.OK(), nil
}

// BalanceOf returns the balance for an address, 0 for unknown addresses
// and currencies.
func (l *Ledger) BalanceOf(currencyID, address string) int64 {
	cur, ok := l.currencies[currencyID]
	if !ok {
		return 0
	}
	return cur.balances[address]
}

// TotalSupply returns the circulating supply of a currency.
func (l *Ledger) TotalSupply(currencyID string) int64 {
	cur, ok := l.currencies[currencyID]
	if !ok {
		return 0
	}
	return cur.totalSupply
}

// Currency returns the effective configuration of a currency.
func (l *Ledger) Currency(currencyID string) (Config, bool) {
	if cur, ok := l.currencies[currencyID]; ok {
		return cur.config, true
	}
	if def, ok := l.defined[currencyID]; ok {
		return def, true
	}
	return Config{}, false
}

// ForceInitialize replays the log into this machine (and its siblings).
// Idempotent; safe to call multiple times.
func (l *Ledger) ForceInitialize(ctx context.Context) error {
	return l.d.ForceInitialize(ctx)
}
