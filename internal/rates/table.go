package rates

import (
	"math"
	"slices"
	"sort"

	"github.com/rickgao/altrates/internal/model"
)

// Table maps a source currency to destination rates: one unit of src is
// worth Table[src][dst] units of dst.
type Table map[model.Code]map[model.Code]float64

// Get returns the rate from src to dst.
func (t Table) Get(src, dst model.Code) (float64, bool) {
	row, ok := t[src]
	if !ok {
		return 0, false
	}
	v, ok := row[dst]
	return v, ok
}

// Set stores a single directed rate, creating the row if needed.
func (t Table) Set(src, dst model.Code, rate float64) {
	row, ok := t[src]
	if !ok {
		row = make(map[model.Code]float64)
		t[src] = row
	}
	row[dst] = rate
}

// SetPair stores rate for src->dst and its reciprocal for dst->src.
// Unusable rates (zero, negative, NaN, Inf) are ignored.
func (t Table) SetPair(src, dst model.Code, rate float64) {
	if !usable(rate) || src == dst {
		return
	}
	t.Set(src, dst, rate)
	t.Set(dst, src, 1/rate)
}

// Row returns a copy of the rates out of src.
func (t Table) Row(src model.Code) map[model.Code]float64 {
	row := make(map[model.Code]float64, len(t[src]))
	for k, v := range t[src] {
		row[k] = v
	}
	return row
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for src, row := range t {
		out[src] = make(map[model.Code]float64, len(row))
		for dst, v := range row {
			out[src][dst] = v
		}
	}
	return out
}

// Len returns the number of directed rates in the table.
func (t Table) Len() int {
	n := 0
	for _, row := range t {
		n += len(row)
	}
	return n
}

func (t Table) ensureRow(c model.Code) {
	if _, ok := t[c]; !ok {
		t[c] = make(map[model.Code]float64)
	}
}

// Equal reports whether a and b hold the same rates within a relative tolerance.
func Equal(a, b Table, tolerance float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	for src, row := range a {
		for dst, va := range row {
			vb, ok := b.Get(src, dst)
			if !ok || !approxEqual(va, vb, tolerance) {
				return false
			}
		}
	}
	return true
}

func approxEqual(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tolerance*math.Max(math.Abs(a), math.Abs(b))
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// orderedKeys lists the keys of m in a stable order: tracked currencies in
// their configured order first, then anything else sorted.
func orderedKeys[V any](m map[model.Code]V, cs model.Currencies) []model.Code {
	keys := make([]model.Code, 0, len(m))
	for _, c := range cs.All() {
		if _, ok := m[c]; ok {
			keys = append(keys, c)
		}
	}
	var extra []model.Code
	for k := range m {
		if !cs.Contains(k) {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return slices.Concat(keys, extra)
}
