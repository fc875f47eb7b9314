// Package op defines the operation envelope, the canonical unit of change
// replicated through the shared append-only log.
//
// This package contains type definitions and boundary codecs only. All other
// internal packages import op; op imports nothing internal. This keeps the
// envelope format the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Payloads are tagged unions, one Go type per operation type. Untyped
//     maps never cross the log boundary into domain logic.
//   - NO float types anywhere - amounts are int64 in the smallest unit.
//   - Wire encoding is RFC 8785 canonical JSON so that fingerprints and
//     stored envelopes are byte-stable across replays.
//   - Timestamps are int64 milliseconds since epoch, as written by every
//     log writer regardless of implementation language.
package op
