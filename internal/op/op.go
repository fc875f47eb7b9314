package op

import (
	"encoding/json"
	"fmt"
	"strings"
)

// System tags an envelope with the domain state machine that owns it.
type System string

const (
	// SystemIdentity routes to the identity registry.
	SystemIdentity System = "identity"
	// SystemPermission routes to the permission authority.
	SystemPermission System = "permission"
	// SystemCurrency routes to the currency ledger.
	SystemCurrency System = "currency"
	// SystemResource routes to the resource inventory.
	SystemResource System = "resource"
	// SystemTokenGated routes to the token-gate machine.
	SystemTokenGated System = "tokenGated"
)

// IsValid reports whether the system tag is one of the known domains.
func (s System) IsValid() bool {
	switch s {
	case SystemIdentity, SystemPermission, SystemCurrency, SystemResource, SystemTokenGated:
		return true
	}
	return false
}

// Payload is the typed body of an envelope. Exactly one Go type exists per
// operation type; payloads are decoded and validated at the log boundary
// before they reach domain logic.
type Payload interface {
	// Kind returns the wire operation type (e.g. "MINT", "REGISTER_DEVICE").
	Kind() string

	// fields returns the full wire field set, excluding "type".
	// Values are limited to string, int64 and bool for canonical encoding.
	fields() map[string]any

	// identity returns the type-specific fields that identify this
	// operation for deduplication. A nil return means required fields are
	// missing and the envelope must be dropped.
	identity() map[string]any
}

// Envelope is the immutable unit appended to the shared log.
//
// Wire format (exact field names):
//
//	{ "system": "...", "data": { "type": "...", ... }, "timestamp": 123, "nonce": "..." }
//
// Nonce is optional on the wire. The local write path always stamps one so
// that two otherwise-identical operations issued within the same millisecond
// still dedup independently. Envelopes from foreign writers without a nonce
// fall back to the field-derived dedup key.
type Envelope struct {
	System    System
	Payload   Payload
	Timestamp int64
	Nonce     string
}

// ErrMalformed reports an entry that cannot be decoded into an envelope.
// Malformed entries are skipped by the dispatcher, never fatal.
var ErrMalformed = fmt.Errorf("malformed envelope")

// wireEnvelope mirrors the JSON layout for boundary decoding.
type wireEnvelope struct {
	System    string          `json:"system"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Nonce     string          `json:"nonce,omitempty"`
}

// Decode parses a raw log entry into a typed envelope.
//
// Entries may arrive double-encoded (a JSON string containing the envelope
// JSON); such entries are unwrapped first. Any structural problem - missing
// system or data, unknown system, unknown operation type - is reported as
// ErrMalformed so the caller can skip the entry.
func Decode(raw []byte) (Envelope, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Envelope{}, fmt.Errorf("%w: empty entry", ErrMalformed)
	}

	// Values may arrive JSON-serialized as strings; unwrap before dispatch.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Decode([]byte(inner))
	}

	var wire wireEnvelope
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wire.System == "" {
		return Envelope{}, fmt.Errorf("%w: missing system", ErrMalformed)
	}
	if len(wire.Data) == 0 {
		return Envelope{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}

	system := System(wire.System)
	if !system.IsValid() {
		return Envelope{}, fmt.Errorf("%w: unknown system %q", ErrMalformed, wire.System)
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(wire.Data, &tag); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tag.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing data.type", ErrMalformed)
	}

	payload, err := decodePayload(system, tag.Type, wire.Data)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		System:    system,
		Payload:   payload,
		Timestamp: wire.Timestamp,
		Nonce:     wire.Nonce,
	}, nil
}

// decodePayload routes data decoding by system tag.
func decodePayload(system System, opType string, data json.RawMessage) (Payload, error) {
	switch system {
	case SystemIdentity:
		return decodeIdentityPayload(opType, data)
	case SystemPermission:
		return decodePermissionPayload(opType, data)
	case SystemCurrency:
		return decodeCurrencyPayload(opType, data)
	case SystemResource:
		return decodeResourcePayload(opType, data)
	case SystemTokenGated:
		return decodeTokenGatedPayload(opType, data)
	default:
		return nil, fmt.Errorf("%w: unknown system %q", ErrMalformed, system)
	}
}

// Encode serializes the envelope to canonical JSON.
// The output is byte-stable: encoding the same envelope twice, or on two
// different nodes, yields identical bytes.
func Encode(env Envelope) ([]byte, error) {
	if env.Payload == nil {
		return nil, fmt.Errorf("encode envelope: nil payload")
	}

	data := map[string]any{"type": env.Payload.Kind()}
	for k, v := range env.Payload.fields() {
		data[k] = v
	}

	obj := map[string]any{
		"system":    string(env.System),
		"data":      data,
		"timestamp": env.Timestamp,
	}
	if env.Nonce != "" {
		obj["nonce"] = env.Nonce
	}

	encoded, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return encoded, nil
}

// unmarshalInto decodes data into dst, reporting malformed JSON as
// ErrMalformed. Unknown fields are tolerated: foreign writers may attach
// metadata this core does not interpret.
func unmarshalInto(opType string, data json.RawMessage, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, opType, err)
	}
	return nil
}
