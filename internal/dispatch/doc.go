// Package dispatch implements the apply dispatcher: the single-writer loop
// that turns the shared log's total order into authoritative domain state.
//
// ARCHITECTURE:
//
// Single-Writer Apply Path:
// All state mutation happens under one dispatcher. Envelopes are applied
// one at a time, in log order, whether they arrive from the local write
// path (optimistic apply) or from log delivery and replay. This ensures:
//   - Deterministic transitions (no interleaving of apply calls)
//   - Reproducible state on replay
//   - Simple reasoning about the dedup ledger
//
// Envelope Processing Flow:
//  1. Decode raw entry at the boundary (malformed entries are skipped)
//  2. Fingerprint for deduplication (envelopes missing required fields are
//     dropped)
//  3. Dedup check - a hit is a successful no-op, not an error
//  4. Route by system tag to the registered domain machine
//  5. Append the outcome to the durable view, success or business reject
//
// ERROR HANDLING: business rejects are values carried in Result, never
// errors. Infrastructure failures inside the delivery loop are logged with
// full envelope context and processing continues - retries would make
// replay non-deterministic.
package dispatch
