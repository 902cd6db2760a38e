package query

// ListState is the page-owned list state. Every mutation that can shrink
// the result set sends the user back to page 1; the pipeline itself never
// adjusts the page.
type ListState struct {
	Filters ActiveFilters
	Price   *PriceRange
	Sort    SortKey
	Page    int
}

// NewListState returns the default state: no filters, relevance order, page 1.
func NewListState() *ListState {
	return &ListState{Filters: ActiveFilters{}, Sort: SortRelevance, Page: 1}
}

// ToggleFilter flips one facet value.
func (s *ListState) ToggleFilter(key, value string) {
	s.Filters.Toggle(key, value)
	s.Page = 1
}

// AddFilter selects value under key without toggling it off when repeated.
func (s *ListState) AddFilter(key, value string) {
	s.Filters.Add(key, value)
	s.Page = 1
}

// ClearFilter drops every value selected under key.
func (s *ListState) ClearFilter(key string) {
	delete(s.Filters, key)
	s.Page = 1
}

// SetPriceRange applies a price selection against the facet bounds; the
// full span clears the filter.
func (s *ListState) SetPriceRange(selected PriceRange, lo, hi float64) {
	s.Price = NormalizePriceRange(selected, lo, hi)
	s.Page = 1
}

// SetPrice applies an explicit price range; nil clears it.
func (s *ListState) SetPrice(pr *PriceRange) {
	s.Price = pr
	s.Page = 1
}

// ClearPriceRange removes the price filter.
func (s *ListState) ClearPriceRange() {
	s.Price = nil
	s.Page = 1
}

// SetSort changes the ordering.
func (s *ListState) SetSort(key SortKey) {
	s.Sort = key
	s.Page = 1
}

// ClearAll resets filters and price.
func (s *ListState) ClearAll() {
	s.Filters = ActiveFilters{}
	s.Price = nil
	s.Page = 1
}

// SetPage moves to page, clamped to at least 1.
func (s *ListState) SetPage(page int) {
	s.Page = max(page, 1)
}

// Request converts the state into a pipeline request.
func (s *ListState) Request(pageSize int) Request {
	return Request{Filters: s.Filters, Price: s.Price, Sort: s.Sort, Page: s.Page, PageSize: pageSize}
}
