package lookup

import (
	"slices"
	"strings"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

// DefaultSearchLimit caps Search when the caller passes a non-positive limit.
const DefaultSearchLimit = 10

// MatchType names the search pass that produced a result.
type MatchType string

const (
	MatchExactCode   MatchType = "exact-upc"
	MatchPartialCode MatchType = "partial-upc"
	MatchName        MatchType = "name"
	MatchBrand       MatchType = "brand"
	MatchAttribute   MatchType = "attribute"
)

// Match is the owner of a code. Variant is nil for product-level codes.
type Match struct {
	Product *catalog.Product
	Variant *catalog.Variant
}

// SearchResult is one entry of a search listing.
type SearchResult struct {
	Product     *catalog.Product `json:"product"`
	Variant     *catalog.Variant `json:"variant,omitempty"`
	MatchType   MatchType        `json:"matchType"`
	MatchedCode string           `json:"matchedCode,omitempty"`
}

// Index maps normalized codes to their owners. It is immutable once built
// and safe for concurrent reads.
type Index struct {
	products []catalog.Product
	codes    map[string]Match
	order    []string
}

// Build indexes product and variant SKUs and UPCs. When two owners share a
// normalized code the first one wins; catalog validation rejects such data
// before it reaches here.
func Build(products []catalog.Product) *Index {
	idx := &Index{
		products: slices.Clone(products),
		codes:    make(map[string]Match),
	}
	for i := range idx.products {
		p := &idx.products[i]
		for _, code := range p.Codes() {
			idx.add(code, Match{Product: p})
		}
		for j := range p.Variants {
			v := &p.Variants[j]
			for _, code := range v.Codes() {
				idx.add(code, Match{Product: p, Variant: v})
			}
		}
	}
	return idx
}

func (idx *Index) add(code string, m Match) {
	key := catalog.NormalizeCode(code)
	if key == "" {
		return
	}
	if _, exists := idx.codes[key]; exists {
		return
	}
	idx.codes[key] = m
	idx.order = append(idx.order, key)
}

// Len reports the number of indexed codes.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.codes)
}

// Products returns the indexed product set.
func (idx *Index) Products() []catalog.Product {
	if idx == nil {
		return nil
	}
	return idx.products
}

// FindByCode resolves an exact code after normalization.
func (idx *Index) FindByCode(code string) (Match, bool) {
	if idx == nil {
		return Match{}, false
	}
	key := catalog.NormalizeCode(code)
	if key == "" {
		return Match{}, false
	}
	m, ok := idx.codes[key]
	return m, ok
}

// Search runs the fixed-priority passes (exact code, partial code, name,
// brand, attribute) and returns at most limit results, one per product.
func (idx *Index) Search(query string, limit int) []SearchResult {
	q := strings.TrimSpace(query)
	if idx == nil || q == "" {
		return []SearchResult{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s := searcher{limit: limit, seen: make(map[string]struct{})}
	code := catalog.NormalizeCode(q)
	needle := strings.ToLower(q)

	if m, ok := idx.codes[code]; ok {
		s.add(SearchResult{Product: m.Product, Variant: m.Variant, MatchType: MatchExactCode, MatchedCode: code})
	}
	for _, key := range idx.order {
		if s.full() {
			break
		}
		if strings.Contains(key, code) {
			m := idx.codes[key]
			s.add(SearchResult{Product: m.Product, Variant: m.Variant, MatchType: MatchPartialCode, MatchedCode: key})
		}
	}
	idx.scan(&s, MatchName, func(p *catalog.Product) bool {
		return containsFold(p.Name, needle)
	})
	idx.scan(&s, MatchBrand, func(p *catalog.Product) bool {
		return containsFold(p.Brand, needle)
	})
	idx.scan(&s, MatchAttribute, func(p *catalog.Product) bool {
		return attributeMatches(p, needle)
	})
	return s.results
}

func (idx *Index) scan(s *searcher, mt MatchType, match func(*catalog.Product) bool) {
	for i := range idx.products {
		if s.full() {
			return
		}
		p := &idx.products[i]
		if match(p) {
			s.add(SearchResult{Product: p, MatchType: mt})
		}
	}
}

type searcher struct {
	limit   int
	seen    map[string]struct{}
	results []SearchResult
}

func (s *searcher) full() bool {
	return len(s.results) >= s.limit
}

func (s *searcher) add(r SearchResult) {
	if s.full() {
		return
	}
	if _, dup := s.seen[r.Product.ID]; dup {
		return
	}
	s.seen[r.Product.ID] = struct{}{}
	s.results = append(s.results, r)
}

// attributeMatches checks the attribute labels and values shown on a product
// card: declared variant attributes and material.
func attributeMatches(p *catalog.Product, needle string) bool {
	if containsFold(p.Material, needle) {
		return true
	}
	for _, attr := range p.VariantAttributes {
		if containsFold(attr.Name, needle) {
			return true
		}
		for _, v := range attr.Values {
			if containsFold(v, needle) {
				return true
			}
		}
	}
	for _, v := range p.Variants {
		for _, val := range v.Attributes {
			if containsFold(val, needle) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, lowerNeedle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerNeedle)
}
