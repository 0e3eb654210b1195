// Package writer implements the rate history batch writer.
//
// The RateWriter receives merge events from the engine, expands each into
// one row per altcoin rate and inserts them in batches. Rows are append-only;
// a replayed snapshot id is ignored by the primary key.
package writer
