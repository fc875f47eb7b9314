package dispatch

import (
	"github.com/google/uuid"
)

// NonceGenerator produces unique nonces for locally created envelopes.
// Implemented by UUIDv7Generator (production) and the fixed generators in
// testutil (tests).
type NonceGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 nonces.
//
// UUIDv7 embeds a timestamp in the most significant bits, making nonces
// sortable by creation time, which is helpful when eyeballing the durable
// view.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
