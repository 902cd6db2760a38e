package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/b2b-portal/internal/bulkorder"
)

// DefaultTTL applies when the store is created without an expiry.
const DefaultTTL = 72 * time.Hour

// ErrCartID indicates a missing or malformed cart identifier.
var ErrCartID = errors.New("cart: invalid cart id")

// Line is one draft cart line.
type Line struct {
	bulkorder.LineItem
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the cart content.
type Draft struct {
	ID       string  `json:"id"`
	Lines    []Line  `json:"lines"`
	Subtotal float64 `json:"subtotal"`
}

// Store keeps draft carts in Redis. Quantities live in one hash so repeated
// batches add up atomically; line details live in a sibling hash.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// NewID returns a fresh cart identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseID validates a client supplied cart identifier.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrCartID, raw)
	}
	return id.String(), nil
}

func qtyKey(id string) string  { return "cart:" + id }
func lineKey(id string) string { return "cart:" + id + ":lines" }

func lineField(item bulkorder.LineItem) string {
	if item.VariantID != "" {
		return item.ProductID + "/" + item.VariantID
	}
	return item.ProductID
}

// AddItems adds a batch to cart id in a single transaction.
func (s *Store) AddItems(ctx context.Context, id string, items []bulkorder.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	now := s.now()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			field := lineField(item)
			meta := Line{LineItem: item, UpdatedAt: now}
			meta.Quantity = 0
			payload, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			pipe.HIncrByFloat(ctx, qtyKey(id), field, item.Quantity)
			pipe.HSet(ctx, lineKey(id), field, payload)
		}
		pipe.Expire(ctx, qtyKey(id), s.ttl)
		pipe.Expire(ctx, lineKey(id), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cart: add items: %w", err)
	}
	return nil
}

// Get returns the draft for id; an unknown id yields an empty draft.
func (s *Store) Get(ctx context.Context, id string) (Draft, error) {
	draft := Draft{ID: id, Lines: []Line{}}
	qtys, err := s.client.HGetAll(ctx, qtyKey(id)).Result()
	if err != nil {
		return draft, fmt.Errorf("cart: read quantities: %w", err)
	}
	if len(qtys) == 0 {
		return draft, nil
	}
	metas, err := s.client.HGetAll(ctx, lineKey(id)).Result()
	if err != nil {
		return draft, fmt.Errorf("cart: read lines: %w", err)
	}

	fields := make([]string, 0, len(qtys))
	for field := range qtys {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		var line Line
		if raw, ok := metas[field]; ok {
			if err := json.Unmarshal([]byte(raw), &line); err != nil {
				return draft, fmt.Errorf("cart: decode line %s: %w", field, err)
			}
		}
		qty, err := strconv.ParseFloat(qtys[field], 64)
		if err != nil {
			return draft, fmt.Errorf("cart: parse quantity %s: %w", field, err)
		}
		line.Quantity = qty
		draft.Lines = append(draft.Lines, line)
		draft.Subtotal += qty * line.UnitPrice
	}
	return draft, nil
}

// Clear removes the draft.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, qtyKey(id), lineKey(id)).Err(); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

// For binds the store to one cart so it satisfies bulkorder.Cart.
func (s *Store) For(id string) bulkorder.Cart {
	return boundCart{store: s, id: id}
}

type boundCart struct {
	store *Store
	id    string
}

func (c boundCart) AddItems(ctx context.Context, items []bulkorder.LineItem) error {
	return c.store.AddItems(ctx, c.id, items)
}
