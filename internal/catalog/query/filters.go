package query

import (
	"maps"
	"slices"
)

// ActiveFilters maps a filter key to the set of values selected for it.
type ActiveFilters map[string]map[string]struct{}

// NewActiveFilters builds filters from key → values pairs.
func NewActiveFilters(selected map[string][]string) ActiveFilters {
	f := ActiveFilters{}
	for key, values := range selected {
		for _, v := range values {
			f.Add(key, v)
		}
	}
	return f
}

// Add selects value under key.
func (f ActiveFilters) Add(key, value string) {
	set, ok := f[key]
	if !ok {
		set = map[string]struct{}{}
		f[key] = set
	}
	set[value] = struct{}{}
}

// Remove deselects value; a key left without values is dropped.
func (f ActiveFilters) Remove(key, value string) {
	set, ok := f[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(f, key)
	}
}

// Toggle flips the selection of value under key.
func (f ActiveFilters) Toggle(key, value string) {
	if f.Has(key, value) {
		f.Remove(key, value)
		return
	}
	f.Add(key, value)
}

// Has reports whether value is selected under key.
func (f ActiveFilters) Has(key, value string) bool {
	_, ok := f[key][value]
	return ok
}

// Values lists the selected values of key in sorted order.
func (f ActiveFilters) Values(key string) []string {
	return slices.Sorted(maps.Keys(f[key]))
}

// Keys lists the active keys in sorted order.
func (f ActiveFilters) Keys() []string {
	var keys []string
	for key, set := range f {
		if len(set) > 0 {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy.
func (f ActiveFilters) Clone() ActiveFilters {
	out := make(ActiveFilters, len(f))
	for key, set := range f {
		out[key] = maps.Clone(set)
	}
	return out
}

// PriceRange is an inclusive numeric bound on product price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether price lies within the range.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// NormalizePriceRange returns nil when selected covers the whole [lo, hi]
// span, since selecting everything is the same as not filtering.
func NormalizePriceRange(selected PriceRange, lo, hi float64) *PriceRange {
	if selected.Min <= lo && selected.Max >= hi {
		return nil
	}
	return &selected
}
