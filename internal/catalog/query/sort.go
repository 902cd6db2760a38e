package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

// SortKey selects the result ordering.
type SortKey string

const (
	SortRelevance   SortKey = "relevance"
	SortPriceAsc    SortKey = "price-asc"
	SortPriceDesc   SortKey = "price-desc"
	SortAlphaAsc    SortKey = "alpha-asc"
	SortAlphaDesc   SortKey = "alpha-desc"
	SortNewest      SortKey = "newest"
	SortBestselling SortKey = "bestselling"
)

// SortKeys lists every supported key.
var SortKeys = []SortKey{SortRelevance, SortPriceAsc, SortPriceDesc, SortAlphaAsc, SortAlphaDesc, SortNewest, SortBestselling}

// ErrUnknownSort indicates an unsupported sort key.
var ErrUnknownSort = errors.New("query: unknown sort key")

// ParseSortKey validates raw input. Empty input means relevance.
func ParseSortKey(raw string) (SortKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SortRelevance, nil
	}
	key := SortKey(raw)
	if !slices.Contains(SortKeys, key) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSort, raw)
	}
	return key, nil
}

// Sorter orders product lists. Every ordering is stable.
type Sorter struct {
	lang language.Tag
}

// NewSorter returns a Sorter comparing names with the collation rules of lang.
func NewSorter(lang language.Tag) Sorter {
	return Sorter{lang: lang}
}

// Sort returns a sorted copy of products; the input is left untouched.
// SortNewest reverses input order: products carry no creation date, so the
// feed order stands in for recency.
func (s Sorter) Sort(products []catalog.Product, key SortKey) []catalog.Product {
	out := slices.Clone(products)
	switch key {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b catalog.Product) int { return compareFloat(a.Price, b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b catalog.Product) int { return compareFloat(b.Price, a.Price) })
	case SortAlphaAsc, SortAlphaDesc:
		// Collators keep internal buffers; one per call.
		col := collate.New(s.lang, collate.IgnoreCase)
		sign := 1
		if key == SortAlphaDesc {
			sign = -1
		}
		slices.SortStableFunc(out, func(a, b catalog.Product) int {
			return sign * col.CompareString(a.Name, b.Name)
		})
	case SortNewest:
		slices.Reverse(out)
	case SortBestselling:
		slices.SortStableFunc(out, func(a, b catalog.Product) int {
			return rank(b) - rank(a)
		})
	}
	return out
}

func rank(p catalog.Product) int {
	if p.HasBadge(catalog.BadgeBestseller) {
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
