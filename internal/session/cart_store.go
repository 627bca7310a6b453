package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartStore keeps anonymous visitor carts in Redis as a product-id to
// quantity hash, keyed by the visitor's session cookie. Nothing here is
// persisted past the TTL; the cart either gets merged into the database at
// login or expires.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const cartTTL = 7 * 24 * time.Hour

func NewCartStore(addr, password string) (*CartStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &CartStore{rdb: rdb, ttl: cartTTL}, nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:sess:%s", sessionID)
}

func (s *CartStore) Get(ctx context.Context, sessionID string) (map[uint]uint, error) {
	raw, err := s.rdb.HGetAll(ctx, cartKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("session cart read: %w", err)
	}

	cart := make(map[uint]uint, len(raw))
	for field, value := range raw {
		productID, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		quantity, err := strconv.ParseUint(value, 10, 64)
		if err != nil || quantity == 0 {
			continue
		}
		cart[uint(productID)] = uint(quantity)
	}
	return cart, nil
}

func (s *CartStore) Add(ctx context.Context, sessionID string, productID, quantity uint) error {
	key := cartKey(sessionID)
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, strconv.FormatUint(uint64(productID), 10), int64(quantity))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session cart add: %w", err)
	}
	return nil
}

func (s *CartStore) SetQuantity(ctx context.Context, sessionID string, productID, quantity uint) error {
	key := cartKey(sessionID)
	if quantity == 0 {
		return s.Remove(ctx, sessionID, productID)
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, strconv.FormatUint(uint64(productID), 10), quantity)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session cart set: %w", err)
	}
	return nil
}

func (s *CartStore) Remove(ctx context.Context, sessionID string, productID uint) error {
	if err := s.rdb.HDel(ctx, cartKey(sessionID), strconv.FormatUint(uint64(productID), 10)).Err(); err != nil {
		return fmt.Errorf("session cart remove: %w", err)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session cart clear: %w", err)
	}
	return nil
}

func (s *CartStore) Close() error {
	return s.rdb.Close()
}
