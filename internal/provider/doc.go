// Package provider implements per-altcoin rate provider hooks.
//
// A Hook adds a second rate source for one altcoin:
//   - Setup discovers which fiat symbols the provider prices and opens
//     one websocket session per eligible symbol
//   - Sessions cache the latest ticker payload per symbol
//   - Refresh submits the cached prices to the rate engine
//
// The Registry holds the hooks built from configuration. Only BTC has a
// hook today.
package provider
