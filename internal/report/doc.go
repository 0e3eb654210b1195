// Package report implements rate-limited error reporting.
//
// Every error is logged. Forwarding to the external Reporter is gated per
// error class so that a flapping feed produces at most one report per window.
package report
