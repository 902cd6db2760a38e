package query

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/language"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/facets"
	"github.com/odyssey-erp/b2b-portal/internal/shared"
)

// ErrUnknownFilter indicates an active filter key that is not registered.
var ErrUnknownFilter = errors.New("query: unknown filter key")

// Request carries the list state the pipeline is applied with.
type Request struct {
	Filters  ActiveFilters
	Price    *PriceRange
	Sort     SortKey
	Page     int
	PageSize int
}

// Result is one page of the filtered, sorted list.
type Result struct {
	Items      []catalog.Product `json:"items"`
	Total      int               `json:"total"`
	Pagination shared.Pagination `json:"pagination"`
}

// Engine applies filters, sorting and pagination to product sets.
type Engine struct {
	registry *facets.Registry
	sorter   Sorter
}

// NewEngine builds an Engine over the registry, collating names for lang.
func NewEngine(registry *facets.Registry, lang language.Tag) *Engine {
	return &Engine{registry: registry, sorter: NewSorter(lang)}
}

// Query filters, sorts and slices products. Total counts matches before slicing.
func (e *Engine) Query(products []catalog.Product, req Request) (Result, error) {
	filtered, err := e.Filter(products, req.Filters, req.Price)
	if err != nil {
		return Result{}, err
	}
	sorted := e.sorter.Sort(filtered, req.Sort)
	pagination := shared.NewPagination(req.Page, req.PageSize, len(sorted))
	return Result{
		Items:      Paginate(sorted, pagination.Page, pagination.PerPage),
		Total:      len(sorted),
		Pagination: pagination,
	}, nil
}

// Filter keeps products matching every active key (AND) through at least one
// selected value per key (OR) and, when set, the price range.
func (e *Engine) Filter(products []catalog.Product, filters ActiveFilters, price *PriceRange) ([]catalog.Product, error) {
	keys := filters.Keys()
	defs := make([]facets.FilterAttributeDef, 0, len(keys))
	for _, key := range keys {
		def, ok := e.registry.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, key)
		}
		if def.Type == facets.Range {
			return nil, fmt.Errorf("query: %s is a range filter, use the price range", key)
		}
		defs = append(defs, def)
	}

	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if price != nil && !price.Contains(p.Price) {
			continue
		}
		if matchesAll(p, defs, filters) {
			out = append(out, p)
		}
	}
	return out, nil
}

func matchesAll(p catalog.Product, defs []facets.FilterAttributeDef, filters ActiveFilters) bool {
	for _, def := range defs {
		selected := filters[def.Key]
		// Products without a value for an active key never match it.
		if !slices.ContainsFunc(facets.ExtractValues(def, p), func(v string) bool {
			_, ok := selected[v]
			return ok
		}) {
			return false
		}
	}
	return true
}

// Paginate returns the 1-indexed page of items, empty when the page is past the end.
func Paginate(items []catalog.Product, page, pageSize int) []catalog.Product {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return items
	}
	// Compare in page units first so huge page numbers cannot overflow.
	if page-1 >= len(items)/pageSize+1 {
		return []catalog.Product{}
	}
	start := pageSize * (page - 1)
	if start >= len(items) {
		return []catalog.Product{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}
