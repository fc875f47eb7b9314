package op

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefix for dedup fingerprints. The version suffix enables future
// algorithm migration without colliding with existing keys.
const fingerprintDomain = "contract/dedup/v1"

// Fingerprint computes the stable dedup key for an envelope.
//
// The key is a domain-separated SHA-256 over the canonical JSON of
// (system, type, timestamp, type-specific identifying fields) plus the
// write-path nonce when present. Two envelopes with the same key are the
// same logical operation; the second occurrence must be a no-op.
//
// Returns ok=false if the payload lacks required identifying fields, in
// which case the envelope is dropped by the dispatcher.
func Fingerprint(env Envelope) (key string, ok bool) {
	if env.Payload == nil {
		return "", false
	}

	identity := env.Payload.identity()
	if identity == nil {
		return "", false
	}

	obj := map[string]any{
		"system":    string(env.System),
		"type":      env.Payload.Kind(),
		"timestamp": env.Timestamp,
	}
	for k, v := range identity {
		obj[k] = v
	}
	if env.Nonce != "" {
		obj["nonce"] = env.Nonce
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", false
	}
	return hashWithDomain(fingerprintDomain, canonical), true
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
