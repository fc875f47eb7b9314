package op

import (
	"encoding/json"
	"fmt"
)

// Token-gate operation types.
const (
	TypeCreateGate = "CREATE_GATE"
)

// CreateGate defines a token gate: access is granted to addresses holding at
// least MinBalance units of the referenced currency. The balance check is
// simulated against the local currency ledger, not a chain.
type CreateGate struct {
	GateID     string `json:"gateId"`
	CurrencyID string `json:"currencyId"`
	MinBalance int64  `json:"minBalance"`
	CreatorID  string `json:"creatorId"`
}

func (c CreateGate) Kind() string { return TypeCreateGate }

func (c CreateGate) fields() map[string]any {
	return map[string]any{
		"gateId":     c.GateID,
		"currencyId": c.CurrencyID,
		"minBalance": c.MinBalance,
		"creatorId":  c.CreatorID,
	}
}

func (c CreateGate) identity() map[string]any {
	if c.GateID == "" || c.CurrencyID == "" {
		return nil
	}
	return map[string]any{"gateId": c.GateID}
}

func decodeTokenGatedPayload(opType string, data json.RawMessage) (Payload, error) {
	switch opType {
	case TypeCreateGate:
		var p CreateGate
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown tokenGated operation %q", ErrMalformed, opType)
	}
}
