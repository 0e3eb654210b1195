// Package feed implements the stream feed watcher.
//
// The Watcher:
//   - Subscribes to market summary deltas after each connect
//   - Validates every summary payload before using any of it
//   - Extracts directed rates for pairs inside the currency universe
//   - Submits the observations to the rate engine
package feed
