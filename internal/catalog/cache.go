package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "catalog:version"
	bumpChannel     = "catalog.bump"
)

// SnapshotCache stores serialized product sets in Redis under versioned keys.
// A nil cache or nil client passes every load straight to the loader.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *SnapshotCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// FetchProducts returns the cached product set or populates it using the loader,
// along with the cache version it was read under. Nothing is cached when the
// loader fails, so a rejected catalog is never served to other instances.
func (c *SnapshotCache) FetchProducts(ctx context.Context, loader func(context.Context) ([]Product, error)) ([]Product, int64, error) {
	if loader == nil {
		return nil, 0, errors.New("catalog: cache loader required")
	}
	if c == nil || c.client == nil {
		products, err := loader(ctx)
		return products, 0, err
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return nil, 0, err
	}
	key := fmt.Sprintf("catalog:snapshot:%d", ver)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var products []Product
		if err := json.Unmarshal(payload, &products); err != nil {
			return nil, 0, fmt.Errorf("catalog: decode cached snapshot: %w", err)
		}
		return products, ver, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}
	products, err := loader(ctx)
	if err != nil {
		return nil, 0, err
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return nil, 0, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, 0, err
	}
	return products, ver, nil
}

// Bump invalidates the cache by incrementing the version and publishing it.
func (c *SnapshotCache) Bump(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation calls onBump for every version bump published by any instance.
func (c *SnapshotCache) ListenForInvalidation(ctx context.Context, onBump func(version int64)) error {
	if c == nil || c.client == nil || onBump == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, _ := strconv.ParseInt(msg.Payload, 10, 64)
				onBump(ver)
			}
		}
	}()
	return nil
}
