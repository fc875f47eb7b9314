package ledger

import "github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"

// Transaction is one attempted currency operation, applied or not.
// Failed attempts stay in the history with their rejection reason so the
// audit trail covers everything the ledger was asked to do.
type Transaction struct {
	Type       string
	CurrencyID string
	From       string
	To         string
	Amount     int64
	Actor      string
	Timestamp  int64
	Status     dispatch.Status
	Reason     string
}

// TxFilter selects transactions. Zero-valued fields match everything;
// set fields are combined conjunctively.
type TxFilter struct {
	CurrencyID string
	From       string
	To         string
	Type       string
	Status     dispatch.Status
}

func (f TxFilter) matches(tx Transaction) bool {
	if f.CurrencyID != "" && tx.CurrencyID != f.CurrencyID {
		return false
	}
	if f.From != "" && tx.From != f.From {
		return false
	}
	if f.To != "" && tx.To != f.To {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	return true
}

// Transactions returns matching history entries in application order.
func (l *Ledger) Transactions(f TxFilter) []Transaction {
	var out []Transaction
	for _, tx := range l.history {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// record appends a successful transaction and reports it applied.
func (l *Ledger) record(tx Transaction) dispatch.Result {
	tx.Status = dispatch.StatusSuccess
	l.history = append(l.history, tx)
	return dispatch.Applied()
}

// reject appends a failed transaction and reports it rejected.
func (l *Ledger) reject(tx Transaction, reason string) dispatch.Result {
	tx.Status = dispatch.StatusFailed
	tx.Reason = reason
	l.history = append(l.history, tx)
	return dispatch.Rejected(reason)
}
