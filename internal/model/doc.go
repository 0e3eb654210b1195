// Package model defines the currency vocabulary shared across the rate service.
//
// Conventions:
//   - Currency codes are upper-case ticker symbols (e.g., "BAT", "USD")
//   - Fiats are fixed: USD, EUR, GBP, with USD as the default fiat
//   - Altcoin amounts travel in their smallest unit ("probi"), scaled by Decimals
package model
