// Package cache implements the Rate Cache component.
//
// The Rate Cache:
//   - Stores raw feed responses and latest per-symbol provider tickers
//   - Expires entries lazily: a read after the TTL returns absent and prunes
//   - Collapses concurrent loads of one key into a single fetch
//
// Keys are namespaced by family: "url:<endpoint>", "ticker:<SYMBOL>", "fiats:<ALT>".
package cache
