// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed connection state, message rates and reconnects
//   - Accepted merges and rejected candidates by error kind
//   - Rate cache hits and misses per key family
//   - Baseline fetch latency and current altcoin/fiat rates
//   - History writer inserts and failures
//
// A nil *Collector is valid and records nothing.
package metrics
