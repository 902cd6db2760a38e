package portal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/b2b-portal/internal/bulkorder"
	"github.com/odyssey-erp/b2b-portal/internal/cart"
	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/facets"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/query"
)

type recordingObserver struct {
	mu       sync.Mutex
	searches []string
	resolved int
	notFound int
}

func (o *recordingObserver) ObserveSearch(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.searches = append(o.searches, outcome)
}

func (o *recordingObserver) ObserveBulkResolution(resolved, notFound int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolved += resolved
	o.notFound += notFound
}

func newTestService(t *testing.T, observer Observer) (*Service, *catalog.Store) {
	t.Helper()
	store := catalog.NewStore(catalog.NewSeedSource(), nil, nil)
	registry := facets.DefaultRegistry()
	svc := NewService(store, lookup.NewCatalogIndex(store, nil, nil), registry,
		query.NewEngine(registry, language.English), nil, observer, nil, Options{PageSize: 4})
	return svc, store
}

func TestListProductsUsesDefaultPageSize(t *testing.T) {
	svc, _ := newTestService(t, nil)
	page, err := svc.ListProducts(context.Background(), ProductQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)
	assert.Equal(t, 9, page.Total)
	assert.EqualValues(t, 1, page.Version)
}

func TestFacetsMemoizedPerVersion(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Facets(ctx, "Home")
	require.NoError(t, err)
	second, err := svc.Facets(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, svc.facetMemo, 1)

	_, err = svc.Reload(ctx)
	require.NoError(t, err)
	assert.Empty(t, svc.facetMemo)

	third, err := svc.Facets(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, first, third)
	for k := range svc.facetMemo {
		assert.EqualValues(t, 2, k.version)
	}
}

func TestSearchObservesOutcome(t *testing.T) {
	observer := &recordingObserver{}
	svc, _ := newTestService(t, observer)
	ctx := context.Background()

	_, err := svc.Search(ctx, "NPS-SL02", 0)
	require.NoError(t, err)
	_, err = svc.Search(ctx, "zzz", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"exact-upc", "miss"}, observer.searches)
}

func TestSubmitBulkRequiresCartStore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.SubmitBulk(context.Background(), "id", []bulkorder.OrderEntry{{ItemCode: "NPS-SL02", Quantity: "1"}})
	require.Error(t, err)
}

func TestNewEditorUsesConfiguredDebounce(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.opts.Debounce = 2 * time.Second

	clock := clockwork.NewFakeClock()
	synced := make(chan bulkorder.EditorView, 1)
	editor := svc.NewEditor(bulkorder.WithClock(clock), bulkorder.WithOnSync(func(v bulkorder.EditorView) {
		synced <- v
	}))
	defer editor.Close()

	editor.EditRows([]bulkorder.OrderEntry{{ItemCode: "EMB-MG03", Quantity: "2"}})
	clock.Advance(time.Second)
	select {
	case <-synced:
		t.Fatal("synced before the configured debounce")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case view := <-synced:
		assert.Equal(t, "EMB-MG03,2", view.Text)
	case <-time.After(time.Second):
		t.Fatal("editor did not sync")
	}
}

type memoryCarts struct {
	mu    sync.Mutex
	items map[string][]bulkorder.LineItem
}

func (c *memoryCarts) For(id string) bulkorder.Cart {
	return cartFunc(func(_ context.Context, items []bulkorder.LineItem) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.items[id] = append(c.items[id], items...)
		return nil
	})
}

func (c *memoryCarts) Get(_ context.Context, id string) (cart.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draft := cart.Draft{ID: id, Lines: []cart.Line{}}
	for _, item := range c.items[id] {
		draft.Lines = append(draft.Lines, cart.Line{LineItem: item})
	}
	return draft, nil
}

func (c *memoryCarts) Clear(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

type cartFunc func(ctx context.Context, items []bulkorder.LineItem) error

func (f cartFunc) AddItems(ctx context.Context, items []bulkorder.LineItem) error {
	return f(ctx, items)
}

func TestSubmitEditorClearsOnlyOnFullSuccess(t *testing.T) {
	svc, _ := newTestService(t, nil)
	carts := &memoryCarts{items: map[string][]bulkorder.LineItem{}}
	svc.carts = carts
	ctx := context.Background()

	editor := svc.NewEditor(bulkorder.WithClock(clockwork.NewFakeClock()))
	defer editor.Close()

	editor.EditText("EMB-MG03,2\nNOPE-9,1")
	out, view, err := svc.SubmitEditor(ctx, "c-1", editor)
	require.NoError(t, err)
	assert.False(t, out.ClearInputs)
	assert.Equal(t, "EMB-MG03,2\nNOPE-9,1", view.Text)
	assert.Equal(t, view, editor.View())

	editor.EditRows([]bulkorder.OrderEntry{{ItemCode: "EMB-MG03", Quantity: "1"}})
	out, view, err = svc.SubmitEditor(ctx, "c-1", editor)
	require.NoError(t, err)
	assert.True(t, out.ClearInputs)
	assert.Empty(t, view.Text)
	assert.Empty(t, view.Entries)
	assert.Equal(t, bulkorder.StateIdle, view.State)

	draft, err := svc.Cart(ctx, "c-1")
	require.NoError(t, err)
	assert.Len(t, draft.Lines, 2)

	require.NoError(t, svc.ClearCart(ctx, "c-1"))
	draft, err = svc.Cart(ctx, "c-1")
	require.NoError(t, err)
	assert.Empty(t, draft.Lines)
}

func TestClearCartRequiresCartStore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	require.Error(t, svc.ClearCart(context.Background(), "id"))
}

func TestCategoriesFollowSnapshot(t *testing.T) {
	svc, _ := newTestService(t, nil)
	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"apparel", "footwear", "accessories", "home"}, categories)
}
