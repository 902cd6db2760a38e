package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
)

// SnapshotProvider supplies the catalog snapshot the index is built from.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (catalog.Snapshot, error)
}

// BuildObserver receives index build measurements.
type BuildObserver interface {
	ObserveIndexBuild(codes int, duration time.Duration)
}

// CatalogIndex holds the lookup index for the current snapshot. It builds on
// first use and rebuilds whenever the provider reports a new version.
type CatalogIndex struct {
	provider SnapshotProvider
	observer BuildObserver
	logger   *slog.Logger

	mu      sync.RWMutex
	index   *Index
	version int64

	group singleflight.Group
}

// NewCatalogIndex constructs the holder. observer and logger may be nil.
func NewCatalogIndex(provider SnapshotProvider, observer BuildObserver, logger *slog.Logger) *CatalogIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogIndex{provider: provider, observer: observer, logger: logger}
}

// Get returns the index for the provider's current snapshot.
func (c *CatalogIndex) Get(ctx context.Context) (*Index, error) {
	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup: snapshot: %w", err)
	}
	if idx := c.cached(snap.Version); idx != nil {
		return idx, nil
	}

	val, _, _ := c.group.Do(strconv.FormatInt(snap.Version, 10), func() (interface{}, error) {
		if idx := c.cached(snap.Version); idx != nil {
			return idx, nil
		}
		start := time.Now()
		idx := Build(snap.Products)
		elapsed := time.Since(start)

		c.mu.Lock()
		if c.index == nil || snap.Version >= c.version {
			c.index = idx
			c.version = snap.Version
		}
		c.mu.Unlock()

		if c.observer != nil {
			c.observer.ObserveIndexBuild(idx.Len(), elapsed)
		}
		c.logger.Debug("lookup index built",
			slog.Int64("version", snap.Version),
			slog.Int("codes", idx.Len()),
			slog.Duration("duration", elapsed))
		return idx, nil
	})
	return val.(*Index), nil
}

// Invalidate drops the built index; the next Get rebuilds it.
func (c *CatalogIndex) Invalidate() {
	c.mu.Lock()
	c.index = nil
	c.version = 0
	c.mu.Unlock()
}

// FindByCode resolves code against the current index.
func (c *CatalogIndex) FindByCode(ctx context.Context, code string) (Match, bool, error) {
	idx, err := c.Get(ctx)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := idx.FindByCode(code)
	return m, ok, nil
}

func (c *CatalogIndex) cached(version int64) *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index != nil && c.version == version {
		return c.index
	}
	return nil
}
