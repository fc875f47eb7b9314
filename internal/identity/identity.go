// Package identity implements the device registry: each master identity
// owns a set of authorized device keys.
//
// Signature verification is asymmetric on purpose. The write path proves
// the master key authorized the device before anything is applied or
// appended. Replay adds devices unconditionally: the original check gated
// the original append, and historical entries must never fail against a
// later verification context.
package identity

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/QalbeHabib/autobase-smart-contract/internal/dispatch"
	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
)

// ErrInvalidAuthorization means the device signature does not verify
// against the master key.
var ErrInvalidAuthorization = errors.New("invalid authorization")

// Registry is the identity domain state machine and its write path.
// Keys are held hex-encoded, matching the wire form.
type Registry struct {
	d       *dispatch.Dispatcher
	devices map[string][]string // master key -> device keys, insertion order
}

// New creates a registry attached to the dispatcher.
func New(d *dispatch.Dispatcher) *Registry {
	return &Registry{
		d:       d,
		devices: make(map[string][]string),
	}
}

// System returns the identity tag.
func (r *Registry) System() op.System {
	return op.SystemIdentity
}

// Reset clears all registrations ahead of a replay.
func (r *Registry) Reset() {
	r.devices = make(map[string][]string)
}

// Apply adds the device without re-verifying the signature.
func (r *Registry) Apply(env op.Envelope) dispatch.Result {
	p, ok := env.Payload.(op.RegisterDevice)
	if !ok {
		return dispatch.Rejected(fmt.Sprintf("unhandled identity payload %T", env.Payload))
	}

	existing := r.devices[p.MasterPublicKey]
	if slices.Contains(existing, p.DevicePublicKey) {
		// Set semantics: one registration per (master, device) pair.
		return dispatch.Rejected("device already registered")
	}

	r.devices[p.MasterPublicKey] = append(existing, p.DevicePublicKey)
	return dispatch.Applied()
}

// RegisterDevice verifies that authSignature is masterKey's signature over
// the raw device key, then submits the registration through the write path.
// A signature that does not verify returns false with
// ErrInvalidAuthorization and touches neither local state nor the log.
func (r *Registry) RegisterDevice(ctx context.Context, masterKey ed25519.PublicKey, deviceKey ed25519.PublicKey, authSignature []byte) (bool, error) {
	if len(masterKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("register device: master key is %d bytes, want %d", len(masterKey), ed25519.PublicKeySize)
	}
	if !ed25519.Verify(masterKey, deviceKey, authSignature) {
		return false, ErrInvalidAuthorization
	}

	return r.RegisterDeviceHex(ctx,
		hex.EncodeToString(masterKey),
		hex.EncodeToString(deviceKey),
		hex.EncodeToString(authSignature),
	)
}

// RegisterDeviceHex submits a registration whose keys are already
// hex-encoded. No signature check happens here: the caller either verified
// the raw material or is relaying an envelope that was verified at its
// origin.
func (r *Registry) RegisterDeviceHex(ctx context.Context, masterKeyHex, deviceKeyHex, authSignatureHex string) (bool, error) {
	res, err := r.d.Submit(ctx, op.Envelope{
		System: op.SystemIdentity,
		Payload: op.RegisterDevice{
			MasterPublicKey: masterKeyHex,
			DevicePublicKey: deviceKeyHex,
			AuthSignature:   authSignatureHex,
		},
	})
	if err != nil {
		return false, fmt.Errorf("register device: %w", err)
	}
	return res.OK(), nil
}

// IsAuthorizedDevice reports whether the device key is registered under the
// master key. Pure lookup, hex-encoded inputs.
func (r *Registry) IsAuthorizedDevice(masterKeyHex, deviceKeyHex string) bool {
	return slices.Contains(r.devices[masterKeyHex], deviceKeyHex)
}

// DevicesFor returns the device keys registered under a master key in
// registration order. The slice is a copy.
func (r *Registry) DevicesFor(masterKeyHex string) []string {
	return slices.Clone(r.devices[masterKeyHex])
}

// ForceInitialize replays the log into this machine (and its siblings).
func (r *Registry) ForceInitialize(ctx context.Context) error {
	return r.d.ForceInitialize(ctx)
}
