// Package maintenance implements the periodic maintenance scheduler.
//
// The Scheduler:
//   - Runs provider hook setup before the first cycle, retrying failed setups
//   - Fetches the baseline ticker table immediately and on every interval
//   - Publishes the table to the engine, then refreshes each provider hook
//   - Reports every failure through the engine's rate-limited reporter
package maintenance
