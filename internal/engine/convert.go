package engine

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/rickgao/altrates/internal/model"
)

// DefaultFiatDigits is used for currencies without ISO minor-unit data.
const DefaultFiatDigits = 2

// AltToScale returns 10^decimals for alt, the number of smallest units in one coin.
func AltToScale(alt model.Code) (decimal.Decimal, bool) {
	d, ok := model.Decimals[alt]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.New(1, int32(d)), true
}

// FiatP reports whether code is an ISO 4217 currency.
func FiatP(code model.Code) bool {
	_, err := currency.ParseISO(string(code))
	return err == nil
}

// Digits returns the number of minor-unit digits for fiat.
func Digits(fiat model.Code) int {
	unit, err := currency.ParseISO(string(fiat))
	if err != nil {
		return DefaultFiatDigits
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// AltToScale returns the smallest-unit scale of alt.
func (e *Engine) AltToScale(alt model.Code) (decimal.Decimal, bool) {
	return AltToScale(alt)
}

// altToFiat returns probi*rate/scale at full precision.
func (e *Engine) altToFiat(alt model.Code, probi decimal.Decimal, fiat model.Code) (decimal.Decimal, bool) {
	rate, ok := e.GetRate(alt, fiat)
	if !ok {
		return decimal.Zero, false
	}
	scale, ok := AltToScale(alt)
	if !ok {
		return decimal.Zero, false
	}
	return probi.Mul(decimal.NewFromFloat(rate)).Div(scale), true
}

// AltToFiat converts probi smallest units of alt into fiat, rounded to the
// fiat's minor-unit digits.
func (e *Engine) AltToFiat(alt model.Code, probi decimal.Decimal, fiat model.Code) (decimal.Decimal, bool) {
	amount, ok := e.altToFiat(alt, probi, fiat)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Round(int32(Digits(fiat))), true
}

// AltToFiatFloat is AltToFiat without rounding, as a float.
func (e *Engine) AltToFiatFloat(alt model.Code, probi decimal.Decimal, fiat model.Code) (float64, bool) {
	amount, ok := e.altToFiat(alt, probi, fiat)
	if !ok {
		return 0, false
	}
	f, _ := amount.Float64()
	return f, true
}

// FiatToAlt converts a fiat amount into whole smallest units of alt, rounding down.
// A zero amount or unknown rate yields false.
func (e *Engine) FiatToAlt(fiat model.Code, amount decimal.Decimal, alt model.Code) (decimal.Decimal, bool) {
	if amount.IsZero() {
		return decimal.Zero, false
	}
	rate, ok := e.GetRate(alt, fiat)
	if !ok || rate <= 0 {
		return decimal.Zero, false
	}
	scale, ok := AltToScale(alt)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(scale).Div(decimal.NewFromFloat(rate)).Floor(), true
}
