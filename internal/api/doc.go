// Package api provides REST clients for the upstream rate sources.
//
// Upstreams:
//   - Ticker aggregator: one GET per fiat (?convert=<FIAT>&limit=0), returning
//     a list of coins with price_<currency> fields
//   - Rate provider: signed GETs for the global symbol list and websocket tickets
//
// Every response body is checked for an HTML error page before decoding.
package api
