// Package baseline implements the baseline ticker fetcher.
//
// The Fetcher:
//   - Queries the price aggregator once per fiat not yet covered
//   - Caches each aggregator response by URL for the cache TTL
//   - Validates and filters entries against the configured currencies
//   - Returns a normalized ticker table, or nothing if any fiat is missing
package baseline
