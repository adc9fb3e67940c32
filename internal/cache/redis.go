package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	maxJitter      = 5 * time.Minute
	maxSetAttempts = 3
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, kind domain.ListKind, userID string) (*domain.Cart, error) {
	key := cacheKey(kind, userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal %s failed: %w", kind, err2)
	}

	return &cart, nil
}

// Set stores cart unless the cached copy has a higher version. The check and
// the write run in one WATCH/MULTI transaction, so a late write of an older
// read never replaces a newer list.
func (r *RedisCache) Set(ctx context.Context, kind domain.ListKind, userID string, cart *domain.Cart) error {
	key := cacheKey(kind, userID)
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", kind, err)
	}

	// Jitter spreads expiry of lists cached at the same moment
	ttl := r.baseTTL + time.Duration(rand.Int63n(int64(maxJitter)))

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var cached domain.Cart
			if json.Unmarshal(current, &cached) == nil && cached.NewerThan(cart) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis set failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis set failed: %s changed during %d attempts", key, maxSetAttempts)
}

func (r *RedisCache) Delete(ctx context.Context, kind domain.ListKind, userID string) error {
	key := cacheKey(kind, userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(kind domain.ListKind, userID string) string {
	return fmt.Sprintf("%s:%s", kind, userID)
}
