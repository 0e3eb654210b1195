package rates

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/altrates/internal/model"
)

func btcEth() model.Currencies {
	return model.NewCurrencies([]string{"BTC", "ETH"}, "")
}

func TestNormalize_Triangulation(t *testing.T) {
	cs := btcEth()
	reference := Table{
		model.BTC: {model.USD: 10000},
		model.ETH: {model.USD: 500},
	}
	candidate := Table{
		model.BTC: {model.ETH: 20},
	}

	got := Normalize(candidate, reference, cs)

	ethBtc, ok := got.Get(model.ETH, model.BTC)
	require.True(t, ok)
	assert.InDelta(t, 0.05, ethBtc, 1e-12)

	btcUsd, ok := got.Get(model.BTC, model.USD)
	require.True(t, ok)
	assert.InDelta(t, 10000, btcUsd, 1e-6)

	ethUsd, ok := got.Get(model.ETH, model.USD)
	require.True(t, ok)
	assert.InDelta(t, 500, ethUsd, 1e-9)

	usdEth, ok := got.Get(model.USD, model.ETH)
	require.True(t, ok)
	assert.InDelta(t, 1.0/500, usdEth, 1e-15)
}

func TestNormalize_DoesNotOverwrite(t *testing.T) {
	cs := btcEth()
	reference := Table{
		model.BTC: {model.USD: 10000},
		model.ETH: {model.USD: 500},
	}
	candidate := Table{
		model.BTC: {model.ETH: 20, model.USD: 10100},
	}

	got := Normalize(candidate, reference, cs)

	btcUsd, _ := got.Get(model.BTC, model.USD)
	assert.Equal(t, 10100.0, btcUsd)
	usdBtc, ok := got.Get(model.USD, model.BTC)
	require.True(t, ok)
	assert.InDelta(t, 1.0/10100, usdBtc, 1e-15)
}

func TestNormalize_InputsUntouched(t *testing.T) {
	cs := btcEth()
	reference := Table{model.ETH: {model.USD: 500}}
	candidate := Table{model.BTC: {model.ETH: 20}}

	Normalize(candidate, reference, cs)

	assert.Equal(t, Table{model.BTC: {model.ETH: 20}}, candidate)
	assert.Equal(t, Table{model.ETH: {model.USD: 500}}, reference)
}

func TestNormalize_RowPerCurrency(t *testing.T) {
	cs := btcEth()
	got := Normalize(Table{}, Table{}, cs)

	for _, c := range cs.All() {
		row, ok := got[c]
		assert.True(t, ok, "missing row for %s", c)
		assert.Empty(t, row)
	}
}

func TestNormalize_UnreachableStaysEmpty(t *testing.T) {
	cs := btcEth()
	reference := Table{model.ETH: {model.EUR: 450}}
	candidate := Table{model.BTC: {model.USD: 10000}}

	got := Normalize(candidate, reference, cs)

	_, ok := got.Get(model.ETH, model.USD)
	assert.False(t, ok, "ETH/USD has no single-hop route")
	_, ok = got.Get(model.BTC, model.EUR)
	assert.False(t, ok, "BTC/EUR has no single-hop route")
}

func TestNormalize_FiatExclusion(t *testing.T) {
	cs := btcEth()
	reference := Table{
		model.BTC: {model.USD: 10000, model.EUR: 9000, model.GBP: 8000},
		model.USD: {model.BTC: 1.0 / 10000, model.EUR: 0.9},
		model.EUR: {model.BTC: 1.0 / 9000},
	}
	candidate := Table{
		model.BTC: {model.USD: 10000},
		model.USD: {model.EUR: 0.9, model.BTC: 1.0 / 10000},
	}

	got := Normalize(candidate, reference, cs)

	for _, src := range cs.Fiats() {
		for _, dst := range cs.Fiats() {
			_, ok := got.Get(src, dst)
			assert.False(t, ok, "unexpected fiat pair %s/%s", src, dst)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	cs := model.NewCurrencies([]string{"BAT", "BTC", "ETH"}, "")
	reference := Table{
		model.BTC: {model.USD: 10000, model.EUR: 9000},
		model.ETH: {model.USD: 500, model.EUR: 450, model.BTC: 0.05},
		model.BAT: {model.USD: 0.2, model.BTC: 0.00002},
	}
	candidate := Table{
		model.BAT: {model.ETH: 0.0004, model.BTC: 0.000021},
	}

	first := Normalize(candidate, reference, cs)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Normalize(candidate, reference, cs))
	}
}

func TestNormalize_ReciprocalInvariant(t *testing.T) {
	cs := model.NewCurrencies([]string{"BAT", "BTC", "ETH"}, "")
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 50; round++ {
		reference := Table{}
		for _, alt := range cs.Altcoins() {
			for _, fiat := range cs.Fiats() {
				reference.SetPair(alt, fiat, 0.01+rng.Float64()*20000)
			}
		}
		candidate := Table{}
		alts := cs.Altcoins()
		src := alts[rng.IntN(len(alts))]
		dst := cs.All()[rng.IntN(len(cs.All()))]
		candidate.SetPair(src, dst, 0.001+rng.Float64()*100)

		got := Normalize(candidate, reference, cs)

		for a, row := range got {
			for b, ab := range row {
				ba, ok := got.Get(b, a)
				if !ok {
					continue
				}
				if math.Abs(ab*ba-1) > 1e-9 {
					t.Fatalf("round %d: %s/%s = %v, %s/%s = %v", round, a, b, ab, b, a, ba)
				}
			}
		}
	}
}
