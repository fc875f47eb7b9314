package op

import (
	"encoding/json"
	"fmt"
)

// Resource inventory operation types.
const (
	TypeCreateResource   = "CREATE_RESOURCE"
	TypeMintResource     = "MINT_RESOURCE"
	TypeTransferResource = "TRANSFER_RESOURCE"
	TypeConsumeResource  = "CONSUME_RESOURCE"
)

// CreateResource registers a resource definition with zero current supply.
// MaxSupply 0 means unlimited.
type CreateResource struct {
	ResourceID  string `json:"resourceId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxSupply   int64  `json:"maxSupply"`
	CreatorID   string `json:"creatorId"`
}

func (c CreateResource) Kind() string { return TypeCreateResource }

func (c CreateResource) fields() map[string]any {
	return map[string]any{
		"resourceId":  c.ResourceID,
		"name":        c.Name,
		"description": c.Description,
		"maxSupply":   c.MaxSupply,
		"creatorId":   c.CreatorID,
	}
}

func (c CreateResource) identity() map[string]any {
	if c.ResourceID == "" {
		return nil
	}
	return map[string]any{"resourceId": c.ResourceID}
}

// MintResource credits newly created units of a resource to a holder and
// grows current supply.
type MintResource struct {
	ResourceID string `json:"resourceId"`
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
	MinterID   string `json:"minterId"`
}

func (m MintResource) Kind() string { return TypeMintResource }

func (m MintResource) fields() map[string]any {
	return map[string]any{
		"resourceId": m.ResourceID,
		"to":         m.To,
		"amount":     m.Amount,
		"minterId":   m.MinterID,
	}
}

func (m MintResource) identity() map[string]any {
	if m.ResourceID == "" || m.To == "" {
		return nil
	}
	return map[string]any{
		"resourceId": m.ResourceID,
		"to":         m.To,
		"amount":     m.Amount,
	}
}

// TransferResource moves holdings between addresses. Current supply is
// unchanged.
type TransferResource struct {
	ResourceID string `json:"resourceId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
}

func (t TransferResource) Kind() string { return TypeTransferResource }

func (t TransferResource) fields() map[string]any {
	return map[string]any{
		"resourceId": t.ResourceID,
		"from":       t.From,
		"to":         t.To,
		"amount":     t.Amount,
	}
}

func (t TransferResource) identity() map[string]any {
	if t.ResourceID == "" || t.From == "" || t.To == "" {
		return nil
	}
	return map[string]any{
		"resourceId": t.ResourceID,
		"from":       t.From,
		"to":         t.To,
		"amount":     t.Amount,
	}
}

// ConsumeResource destroys units held by an address and shrinks current
// supply. Reason is recorded for audit.
type ConsumeResource struct {
	ResourceID string `json:"resourceId"`
	From       string `json:"from"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
}

func (c ConsumeResource) Kind() string { return TypeConsumeResource }

func (c ConsumeResource) fields() map[string]any {
	return map[string]any{
		"resourceId": c.ResourceID,
		"from":       c.From,
		"amount":     c.Amount,
		"reason":     c.Reason,
	}
}

func (c ConsumeResource) identity() map[string]any {
	if c.ResourceID == "" || c.From == "" {
		return nil
	}
	return map[string]any{
		"resourceId": c.ResourceID,
		"from":       c.From,
		"amount":     c.Amount,
	}
}

func decodeResourcePayload(opType string, data json.RawMessage) (Payload, error) {
	switch opType {
	case TypeCreateResource:
		var p CreateResource
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeMintResource:
		var p MintResource
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeTransferResource:
		var p TransferResource
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeConsumeResource:
		var p ConsumeResource
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown resource operation %q", ErrMalformed, opType)
	}
}
