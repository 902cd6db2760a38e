package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

type stubProvider struct {
	mu      sync.Mutex
	version int64
	items   []catalog.Product
	err     error
}

func (p *stubProvider) Snapshot(context.Context) (catalog.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return catalog.Snapshot{}, p.err
	}
	return catalog.Snapshot{Version: p.version, Products: p.items}, nil
}

func (p *stubProvider) set(version int64, items []catalog.Product) {
	p.mu.Lock()
	p.version = version
	p.items = items
	p.mu.Unlock()
}

type countingObserver struct {
	builds atomic.Int32
	codes  atomic.Int32
}

func (o *countingObserver) ObserveIndexBuild(codes int, _ time.Duration) {
	o.builds.Add(1)
	o.codes.Store(int32(codes))
}

func TestCatalogIndexBuildsOnceConcurrently(t *testing.T) {
	provider := &stubProvider{}
	provider.set(1, []catalog.Product{{ID: "a", SKU: "A-1", UPC: "0001"}})
	observer := &countingObserver{}
	ci := NewCatalogIndex(provider, observer, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := ci.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 2, idx.Len())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, observer.builds.Load())
	assert.EqualValues(t, 2, observer.codes.Load())
	assert.NotNil(t, ci.cached(1))
}

func TestCatalogIndexRebuildsOnNewVersion(t *testing.T) {
	provider := &stubProvider{}
	provider.set(1, []catalog.Product{{ID: "a", SKU: "A-1"}})
	observer := &countingObserver{}
	ci := NewCatalogIndex(provider, observer, nil)
	ctx := context.Background()

	_, ok, err := ci.FindByCode(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, ok)

	provider.set(2, []catalog.Product{{ID: "b", SKU: "B-1"}})
	m, ok, err := ci.FindByCode(ctx, "b-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", m.Product.ID)
	assert.EqualValues(t, 2, observer.builds.Load())

	_, err = ci.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, observer.builds.Load())

	ci.Invalidate()
	assert.Nil(t, ci.cached(2))
	_, err = ci.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, observer.builds.Load())
}

func TestCatalogIndexProviderError(t *testing.T) {
	boom := errors.New("boom")
	ci := NewCatalogIndex(&stubProvider{err: boom}, nil, nil)
	_, err := ci.Get(context.Background())
	require.ErrorIs(t, err, boom)
}
