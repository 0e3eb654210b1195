// Package rates implements the rate table and the pure reconciliation steps.
//
// Components:
//   - Table: src -> dst -> rate, with reciprocal pairs kept in step
//   - Normalize: two-pass, single-hop triangulation against a reference table
//   - Validate: cross-check of altcoin/fiat rates against a reference (±10%)
//   - Error kinds: validation, transport, unavailable, consistency
//
// Nothing in this package performs I/O or keeps state between calls.
package rates
