package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/b2b-portal/internal/bulkorder"
	"github.com/odyssey-erp/b2b-portal/internal/cart"
	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/facets"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/query"
)

// CatalogStore provides snapshots and reloads them on demand.
type CatalogStore interface {
	Snapshot(ctx context.Context) (catalog.Snapshot, error)
	Reload(ctx context.Context) (catalog.Snapshot, error)
}

// CartStore persists draft carts.
type CartStore interface {
	For(id string) bulkorder.Cart
	Get(ctx context.Context, id string) (cart.Draft, error)
	Clear(ctx context.Context, id string) error
}

// Observer records engine level measurements.
type Observer interface {
	ObserveSearch(outcome string)
	ObserveBulkResolution(resolved, notFound int)
}

// Options tunes the service.
type Options struct {
	PageSize    int
	SearchLimit int
	// Debounce is the idle delay for editors created by NewEditor.
	Debounce time.Duration
}

// ProductQuery narrows a listing to a category before the pipeline runs.
type ProductQuery struct {
	Category string
	query.Request
}

// ProductPage is a page of products plus the category it was scoped to.
type ProductPage struct {
	Category string `json:"category,omitempty"`
	Version  int64  `json:"version"`
	query.Result
}

type facetKey struct {
	version  int64
	category string
}

// Service exposes the catalog engine to the HTTP layer.
type Service struct {
	store    CatalogStore
	index    *lookup.CatalogIndex
	registry *facets.Registry
	engine   *query.Engine
	carts    CartStore
	observer Observer
	logger   *slog.Logger
	opts     Options

	mu        sync.Mutex
	facetMemo map[facetKey][]facets.ResolvedFilter
}

// NewService wires the portal service. carts and observer may be nil.
func NewService(store CatalogStore, index *lookup.CatalogIndex, registry *facets.Registry, engine *query.Engine, carts CartStore, observer Observer, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = lookup.DefaultSearchLimit
	}
	return &Service{
		store:     store,
		index:     index,
		registry:  registry,
		engine:    engine,
		carts:     carts,
		observer:  observer,
		logger:    logger,
		opts:      opts,
		facetMemo: make(map[facetKey][]facets.ResolvedFilter),
	}
}

// NewEditor creates a bulk order editor using the configured debounce.
// Options passed by the caller take precedence.
func (s *Service) NewEditor(opts ...bulkorder.EditorOption) *bulkorder.Editor {
	if s.opts.Debounce > 0 {
		opts = append([]bulkorder.EditorOption{bulkorder.WithDebounce(s.opts.Debounce)}, opts...)
	}
	return bulkorder.NewEditor(opts...)
}

// SubmitEditor flushes the editor's pending edits, submits its rows and
// empties both surfaces when the outcome asks for it. Partial successes keep
// the entered text. The returned view reflects the editor after submission.
func (s *Service) SubmitEditor(ctx context.Context, cartID string, editor *bulkorder.Editor) (bulkorder.Outcome, bulkorder.EditorView, error) {
	view := editor.Flush()
	out, err := s.SubmitBulk(ctx, cartID, view.Entries)
	if err != nil {
		return out, view, err
	}
	if out.ClearInputs {
		editor.Clear()
		view = editor.View()
	}
	return out, view, nil
}

// ListProducts filters, sorts and pages the products of one category.
func (s *Service) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return ProductPage{}, err
	}
	if q.PageSize <= 0 {
		q.PageSize = s.opts.PageSize
	}
	res, err := s.engine.Query(catalog.InCategory(snap.Products, q.Category), q.Request)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Category: q.Category, Version: snap.Version, Result: res}, nil
}

// Categories lists the categories present in the current snapshot.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	categories := catalog.Categories(snap.Products)
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// Facets resolves the filter panel for a category. Results are memoized per
// snapshot version and category.
func (s *Service) Facets(ctx context.Context, category string) ([]facets.ResolvedFilter, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	key := facetKey{version: snap.Version, category: strings.ToLower(strings.TrimSpace(category))}

	s.mu.Lock()
	cached, ok := s.facetMemo[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	products := catalog.InCategory(snap.Products, category)
	resolved := facets.Resolve(products, s.registry, s.registry.AllowedKeys(key.category))

	s.mu.Lock()
	for k := range s.facetMemo {
		if k.version != snap.Version {
			delete(s.facetMemo, k)
		}
	}
	s.facetMemo[key] = resolved
	s.mu.Unlock()
	return resolved, nil
}

// Search runs the prioritized lookup. limit <= 0 uses the configured limit.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]lookup.SearchResult, error) {
	idx, err := s.index.Get(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	results := idx.Search(q, limit)
	s.observeSearch(results)
	return results, nil
}

// FindByCode resolves one exact code.
func (s *Service) FindByCode(ctx context.Context, code string) (lookup.Match, bool, error) {
	return s.index.FindByCode(ctx, code)
}

// Reload refreshes the snapshot and drops derived state.
func (s *Service) Reload(ctx context.Context) (catalog.Snapshot, error) {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	s.index.Invalidate()
	s.mu.Lock()
	clear(s.facetMemo)
	s.mu.Unlock()
	if _, err := s.index.Get(ctx); err != nil {
		return snap, err
	}
	s.logger.Info("catalog reloaded", slog.Int64("version", snap.Version), slog.Int("products", len(snap.Products)))
	return snap, nil
}

// SubmitBulk resolves bulk entries against the index and adds the batch to the cart.
func (s *Service) SubmitBulk(ctx context.Context, cartID string, entries []bulkorder.OrderEntry) (bulkorder.Outcome, error) {
	if s.carts == nil {
		return bulkorder.Outcome{}, fmt.Errorf("portal: submit bulk: cart store not configured")
	}
	idx, err := s.index.Get(ctx)
	if err != nil {
		return bulkorder.Outcome{}, err
	}
	out, err := bulkorder.Submit(ctx, entries, idx, s.carts.For(cartID))
	if err != nil {
		return out, err
	}
	if s.observer != nil && out.Validation.ValidCount > 0 && !out.Validation.HasErrors() {
		s.observer.ObserveBulkResolution(len(out.Resolution.ItemsToAdd), len(out.Resolution.NotFoundCodes))
	}
	s.logger.Debug("bulk order submitted",
		slog.String("batch", out.BatchID),
		slog.Int("resolved", len(out.Resolution.ItemsToAdd)),
		slog.Int("not_found", len(out.Resolution.NotFoundCodes)))
	return out, nil
}

// Cart returns the draft cart.
func (s *Service) Cart(ctx context.Context, cartID string) (cart.Draft, error) {
	if s.carts == nil {
		return cart.Draft{}, fmt.Errorf("portal: cart store not configured")
	}
	return s.carts.Get(ctx, cartID)
}

// ClearCart discards the draft cart.
func (s *Service) ClearCart(ctx context.Context, cartID string) error {
	if s.carts == nil {
		return fmt.Errorf("portal: cart store not configured")
	}
	return s.carts.Clear(ctx, cartID)
}

func (s *Service) observeSearch(results []lookup.SearchResult) {
	if s.observer == nil {
		return
	}
	outcome := "miss"
	if len(results) > 0 {
		outcome = string(results[0].MatchType)
	}
	s.observer.ObserveSearch(outcome)
}
