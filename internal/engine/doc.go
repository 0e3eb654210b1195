// Package engine implements the rate engine that owns the canonical rate store.
//
// The Engine:
//   - Holds the latest baseline ticker table, replaced wholesale per fetch
//   - Accepts candidate tables through Submit, the only write path
//   - Normalizes and cross-validates each candidate before merging it
//   - Publishes an immutable snapshot after every merge for lock-free reads
//   - Converts between altcoin smallest units and fiat amounts
package engine
