package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	dom "github.com/ramtunguturi36/hair/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyHistory = "history:list:"

// HistoryCache caches an account's analysis history list in Redis.
type HistoryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewHistoryCache returns a new HistoryCache.
func NewHistoryCache(rdb *redis.Client, ttl time.Duration) *HistoryCache {
	return &HistoryCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list, or nil on a miss.
func (c *HistoryCache) GetList(ctx context.Context, accountID string) ([]dom.Analysis, error) {
	b, err := c.rdb.Get(ctx, keyHistory+accountID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := make([]dom.Analysis, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the list in cache.
func (c *HistoryCache) SetList(ctx context.Context, accountID string, list []dom.Analysis) error {
	if list == nil {
		list = []dom.Analysis{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyHistory+accountID, b, c.ttl).Err()
}

// Invalidate drops the account's cached list (on write).
func (c *HistoryCache) Invalidate(ctx context.Context, accountID string) error {
	return c.rdb.Del(ctx, keyHistory+accountID).Err()
}
