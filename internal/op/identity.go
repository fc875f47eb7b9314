package op

import (
	"encoding/json"
	"fmt"
)

// Identity registry operation types.
const (
	TypeRegisterDevice = "REGISTER_DEVICE"
)

// RegisterDevice authorizes a device key under a master identity.
// Keys and signature are hex-encoded on the wire. The signature was verified
// by the writer before the append; replay trusts it (validate on write,
// trust on replay).
type RegisterDevice struct {
	MasterPublicKey string `json:"masterPublicKey"`
	DevicePublicKey string `json:"devicePublicKey"`
	AuthSignature   string `json:"authSignature"`
}

func (r RegisterDevice) Kind() string { return TypeRegisterDevice }

func (r RegisterDevice) fields() map[string]any {
	return map[string]any{
		"masterPublicKey": r.MasterPublicKey,
		"devicePublicKey": r.DevicePublicKey,
		"authSignature":   r.AuthSignature,
	}
}

func (r RegisterDevice) identity() map[string]any {
	if r.MasterPublicKey == "" || r.DevicePublicKey == "" {
		return nil
	}
	return map[string]any{
		"masterPublicKey": r.MasterPublicKey,
		"devicePublicKey": r.DevicePublicKey,
	}
}

func decodeIdentityPayload(opType string, data json.RawMessage) (Payload, error) {
	switch opType {
	case TypeRegisterDevice:
		var p RegisterDevice
		if err := unmarshalInto(opType, data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown identity operation %q", ErrMalformed, opType)
	}
}
