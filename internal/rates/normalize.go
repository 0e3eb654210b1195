package rates

import "github.com/rickgao/altrates/internal/model"

// Normalize densifies partial using reference as the pivot source.
//
// The result has a row for every tracked currency. Missing entries are filled
// by inverting the opposite direction when present, otherwise by a single hop
// through a pivot p: reference[p][dst] * partial[src][p]. Entries already in
// partial are never overwritten, fiat-to-fiat rates are dropped, and slots that
// cannot be reached in one hop stay empty. Neither input is modified.
func Normalize(partial, reference Table, cs model.Currencies) Table {
	t := partial.Clone()
	for _, c := range cs.All() {
		t.ensureRow(c)
	}
	refKeys := orderedKeys(reference, cs)

	// Altcoin rows pivot through their own observed legs.
	for _, src := range orderedKeys(t, cs) {
		if !cs.IsAlt(src) {
			continue
		}
		for _, dst := range refKeys {
			if dst == src {
				continue
			}
			fill(t, reference, src, dst, orderedKeys(t[src], cs))
		}
	}

	// Remaining tracked pairs pivot through the reference currencies.
	all := cs.All()
	for _, src := range all {
		for _, dst := range all {
			if src == dst || (cs.IsFiat(src) && cs.IsFiat(dst)) {
				continue
			}
			fill(t, reference, src, dst, refKeys)
		}
	}

	for _, src := range cs.Fiats() {
		for dst := range t[src] {
			if cs.IsFiat(dst) {
				delete(t[src], dst)
			}
		}
	}

	return t
}

// fill sets t[src][dst] if it is missing and derivable, writing the
// reciprocal alongside any triangulated value.
func fill(t, reference Table, src, dst model.Code, pivots []model.Code) {
	if _, ok := t.Get(src, dst); ok {
		return
	}
	if back, ok := t.Get(dst, src); ok && usable(back) {
		t.Set(src, dst, 1/back)
		return
	}
	for _, p := range pivots {
		if p == src || p == dst {
			continue
		}
		via, ok := reference.Get(p, dst)
		if !ok {
			continue
		}
		leg, ok := t.Get(src, p)
		if !ok {
			continue
		}
		rate := via * leg
		if !usable(rate) {
			continue
		}
		t.Set(src, dst, rate)
		t.Set(dst, src, 1/rate)
		return
	}
}
