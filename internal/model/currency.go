package model

import (
	"slices"
	"strings"
)

// Code is a currency ticker symbol.
type Code string

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}

// Fiat currencies.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
)

// Altcoins with built-in support.
const (
	BAT Code = "BAT"
	BTC Code = "BTC"
	ETH Code = "ETH"
)

// DefaultFiat is the fiat every aggregator response is denominated in.
const DefaultFiat = USD

// Fiats is the fixed fiat set, in configured order.
var Fiats = []Code{USD, EUR, GBP}

// DefaultAltcoins is used when no altcoins are configured.
var DefaultAltcoins = []Code{BAT, ETH}

// Currencies is the resolved currency universe for one engine instance.
// It is immutable after construction.
type Currencies struct {
	altcoins []Code
	fiats    []Code
	all      []Code

	alt  map[Code]bool
	fiat map[Code]bool
}

// NewCurrencies builds the currency universe from the configured altcoin list
// and the primary altcurrency. The altcurrency is appended when not already
// listed. Codes are upper-cased and deduplicated, keeping first occurrence order.
func NewCurrencies(altcoins []string, altcurrency string) Currencies {
	var codes []Code
	if len(altcoins) == 0 {
		codes = slices.Clone(DefaultAltcoins)
	} else {
		for _, a := range altcoins {
			codes = append(codes, ParseCode(a))
		}
	}
	if altcurrency != "" {
		codes = append(codes, ParseCode(altcurrency))
	}

	cs := Currencies{
		alt:  make(map[Code]bool),
		fiat: make(map[Code]bool),
	}
	for _, f := range Fiats {
		cs.fiat[f] = true
	}
	for _, c := range codes {
		if c == "" || cs.alt[c] || cs.fiat[c] {
			continue
		}
		cs.alt[c] = true
		cs.altcoins = append(cs.altcoins, c)
	}
	cs.fiats = slices.Clone(Fiats)
	cs.all = append(slices.Clone(cs.altcoins), cs.fiats...)
	return cs
}

// ParseCode normalizes a raw currency symbol.
func ParseCode(s string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(s)))
}

// Altcoins returns the configured altcurrencies in order.
func (c Currencies) Altcoins() []Code {
	return slices.Clone(c.altcoins)
}

// Fiats returns the fiat currencies in order.
func (c Currencies) Fiats() []Code {
	return slices.Clone(c.fiats)
}

// All returns altcoins followed by fiats, without duplicates.
func (c Currencies) All() []Code {
	return slices.Clone(c.all)
}

// IsAlt reports whether code is a configured altcurrency.
func (c Currencies) IsAlt(code Code) bool {
	return c.alt[code]
}

// IsFiat reports whether code is one of the fixed fiats.
func (c Currencies) IsFiat(code Code) bool {
	return c.fiat[code]
}

// Contains reports whether code is tracked at all.
func (c Currencies) Contains(code Code) bool {
	return c.alt[code] || c.fiat[code]
}

// Index returns the position of code in All, or -1.
func (c Currencies) Index(code Code) int {
	return slices.Index(c.all, code)
}

// JoinCodes renders codes as "A, B, C" for log and error messages.
func JoinCodes(codes []Code) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
