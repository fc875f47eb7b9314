package op

import (
	"encoding/json"
	"fmt"
)

// Currency ledger operation types.
const (
	TypeMint     = "MINT"
	TypeTransfer = "TRANSFER"
	TypeBurn     = "BURN"
)

// Mint credits newly created units of a currency to an address.
type Mint struct {
	CurrencyID string `json:"currencyId"`
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
	MinterID   string `json:"minterId"`
}

func (m Mint) Kind() string { return TypeMint }

func (m Mint) fields() map[string]any {
	return map[string]any{
		"currencyId": m.CurrencyID,
		"to":         m.To,
		"amount":     m.Amount,
		"minterId":   m.MinterID,
	}
}

func (m Mint) identity() map[string]any {
	if m.CurrencyID == "" || m.To == "" {
		return nil
	}
	return map[string]any{
		"currencyId": m.CurrencyID,
		"to":         m.To,
		"amount":     m.Amount,
	}
}

// Transfer moves units between two addresses. Supply is unchanged.
type Transfer struct {
	CurrencyID string `json:"currencyId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
}

func (t Transfer) Kind() string { return TypeTransfer }

func (t Transfer) fields() map[string]any {
	return map[string]any{
		"currencyId": t.CurrencyID,
		"from":       t.From,
		"to":         t.To,
		"amount":     t.Amount,
	}
}

func (t Transfer) identity() map[string]any {
	if t.CurrencyID == "" || t.From == "" || t.To == "" {
		return nil
	}
	return map[string]any{
		"currencyId": t.CurrencyID,
		"from":       t.From,
		"to":         t.To,
		"amount":     t.Amount,
	}
}

// Burn destroys units held by an address and shrinks total supply.
type Burn struct {
	CurrencyID string `json:"currencyId"`
	From       string `json:"from"`
	Amount     int64  `json:"amount"`
	BurnerID   string `json:"burnerId"`
}

func (b Burn) Kind() string { return TypeBurn }

func (b Burn) fields() map[string]any {
	return map[string]any{
		"currencyId": b.CurrencyID,
		"from":       b.From,
		"amount":     b.Amount,
		"burnerId":   b.BurnerID,
	}
}

func (b Burn) identity() map[string]any {
	if b.CurrencyID == "" || b.From == "" {
		return nil
	}
	return map[string]any{
		"currencyId": b.CurrencyID,
		"from":       b.From,
		"amount":     b.Amount,
	}
}

func decodeCurrencyPayload(opType string, data json.RawMessage) (Payload, error) {
	switch opType {
	case TypeMint:
		var p Mint
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeTransfer:
		var p Transfer
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeBurn:
		var p Burn
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown currency operation %q", ErrMalformed, opType)
	}
}
