package model

// Altcoin holds static metadata for a supported altcurrency.
type Altcoin struct {
	Code Code
	ID   string // Aggregator identifier (e.g., "basic-attention-token")
}

// Altcoins is the registry of altcurrencies the aggregator can price.
var Altcoins = map[Code]Altcoin{
	BAT: {Code: BAT, ID: "basic-attention-token"},
	BTC: {Code: BTC, ID: "bitcoin"},
	ETH: {Code: ETH, ID: "ethereum"},
}

// Decimals is the number of fractional digits in each altcurrency's smallest unit.
var Decimals = map[Code]int{
	"BAT": 18,
	"BCH": 8,
	"BTC": 8,
	"ETC": 18,
	"ETH": 18,
	"LTC": 8,
	"NMC": 8,
	"PPC": 6,
	"XPM": 8,
	"ZEC": 8,
}

// LookupAltcoin returns the static metadata for code.
func LookupAltcoin(code Code) (Altcoin, bool) {
	a, ok := Altcoins[code]
	return a, ok
}
