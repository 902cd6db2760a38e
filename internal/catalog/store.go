package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyCatalog is returned when a source yields no products.
var ErrEmptyCatalog = errors.New("catalog: source returned no products")

// Store owns the current catalog snapshot. Snapshots are loaded lazily and
// replaced wholesale on reload; readers never observe a partially built one.
type Store struct {
	source Source
	cache  *SnapshotCache
	logger *slog.Logger

	mu      sync.RWMutex
	current *Snapshot
	seq     int64
	// gen advances on every invalidation; a load only installs its snapshot
	// if no invalidation happened while it ran.
	gen int64
	// applied is the newest shared cache version this store has loaded or bumped.
	applied int64

	group singleflight.Group
	now   func() time.Time
}

// NewStore wires a Store. cache may be nil.
func NewStore(source Source, cache *SnapshotCache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source: source,
		cache:  cache,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Snapshot returns the current snapshot, loading it on first use.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	current, gen := s.current, s.gen
	s.mu.RUnlock()
	if current != nil {
		return *current, nil
	}
	return s.load(ctx, gen)
}

// Version reports the version of the most recently installed snapshot, or 0
// before the first successful load. Invalidation does not reset it.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Invalidate drops the loaded snapshot so the next read reloads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()
}

// ApplyBump invalidates the snapshot for a cache version published by
// another instance. Versions this store already applied are ignored and
// ApplyBump reports false.
func (s *Store) ApplyBump(version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.applied {
		return false
	}
	s.applied = version
	s.invalidateLocked()
	return true
}

func (s *Store) invalidateLocked() {
	s.gen++
	s.current = nil
}

// Reload bumps the shared cache version and loads a fresh snapshot from the
// source. It never joins a load that started before the bump.
func (s *Store) Reload(ctx context.Context) (Snapshot, error) {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		s.logger.Warn("catalog cache bump", slog.Any("error", err))
	}
	s.mu.Lock()
	if ver > s.applied {
		s.applied = ver
	}
	s.invalidateLocked()
	gen := s.gen
	s.mu.Unlock()
	return s.load(ctx, gen)
}

// load builds the snapshot for generation gen. Callers of the same
// generation share one source read.
func (s *Store) load(ctx context.Context, gen int64) (Snapshot, error) {
	val, err, _ := s.group.Do(strconv.FormatInt(gen, 10), func() (interface{}, error) {
		s.mu.RLock()
		current := s.current
		fresh := s.gen == gen
		s.mu.RUnlock()
		if current != nil && fresh {
			return *current, nil
		}

		start := time.Now()
		products, ver, err := s.cache.FetchProducts(ctx, s.loadValid)
		if err != nil {
			if IsRejected(err) {
				return Snapshot{}, err
			}
			return Snapshot{}, fmt.Errorf("catalog: load snapshot: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if ver > s.applied {
			s.applied = ver
		}
		if s.gen != gen {
			// Invalidated mid-load: hand the result to this flight's callers
			// without installing it over the newer generation.
			if s.current != nil {
				return *s.current, nil
			}
			return Snapshot{Version: s.seq, Products: products, LoadedAt: s.now()}, nil
		}
		s.seq++
		snap := Snapshot{Version: s.seq, Products: products, LoadedAt: s.now()}
		s.current = &snap
		s.logger.Info("catalog snapshot loaded",
			slog.Int64("version", snap.Version),
			slog.Int64("cache_version", ver),
			slog.Int("products", len(products)),
			slog.Duration("duration", time.Since(start)))
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return val.(Snapshot), nil
}

// loadValid reads the source and rejects catalogs that must not be cached.
func (s *Store) loadValid(ctx context.Context) ([]Product, error) {
	products, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}
