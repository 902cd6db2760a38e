package facets

import (
	"slices"
	"strings"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

// Option is one selectable facet value with the number of products carrying it.
type Option struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ResolvedFilter is a facet available for the current product set.
type ResolvedFilter struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Type    FilterType `json:"type"`
	Options []Option   `json:"options,omitempty"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
}

// Resolve computes the facets worth showing for products. allowedKeys narrows
// the registry when non-nil. The result follows registry order and is a pure
// function of its inputs.
func Resolve(products []catalog.Product, registry *Registry, allowedKeys []string) []ResolvedFilter {
	var out []ResolvedFilter
	for _, def := range registry.Defs() {
		if allowedKeys != nil && !slices.Contains(allowedKeys, def.Key) {
			continue
		}
		if !def.Filterable {
			continue
		}
		var (
			resolved ResolvedFilter
			ok       bool
		)
		if def.Type == Range {
			resolved, ok = resolveRange(products, def)
		} else {
			resolved, ok = resolveOptions(products, def)
		}
		if ok {
			out = append(out, resolved)
		}
	}
	return out
}

// ExtractValues returns the normalized values a product holds for a
// checkbox/boolean definition: blanks dropped, duplicates collapsed.
func ExtractValues(def FilterAttributeDef, p catalog.Product) []string {
	if def.Values == nil {
		return nil
	}
	raw := def.Values(p)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if strings.TrimSpace(v) == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func resolveRange(products []catalog.Product, def FilterAttributeDef) (ResolvedFilter, bool) {
	var (
		lo, hi float64
		seen     bool
	)
	for _, p := range products {
		v, ok := def.Number(p)
		if !ok {
			continue
		}
		if !seen {
			lo, hi, seen = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	// A constant field is not worth filtering on.
	if !seen || lo >= hi {
		return ResolvedFilter{}, false
	}
	return ResolvedFilter{Key: def.Key, Label: def.Label, Type: def.Type, Min: lo, Max: hi}, true
}

func resolveOptions(products []catalog.Product, def FilterAttributeDef) (ResolvedFilter, bool) {
	counts := make(map[string]int)
	var order []string
	for _, p := range products {
		for _, v := range ExtractValues(def, p) {
			if _, ok := counts[v]; !ok {
				order = append(order, v)
			}
			counts[v]++
		}
	}
	if len(order) == 0 {
		return ResolvedFilter{}, false
	}
	options := make([]Option, len(order))
	for i, v := range order {
		options[i] = Option{Value: v, Count: counts[v]}
	}
	slices.SortStableFunc(options, func(a, b Option) int {
		return b.Count - a.Count
	})
	return ResolvedFilter{Key: def.Key, Label: def.Label, Type: def.Type, Options: options}, true
}
