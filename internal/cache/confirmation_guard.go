package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	confirmationKeyPrefix = "payment:confirm:"
	confirmationTTL       = 7 * 24 * time.Hour
)

// ConfirmationGuard is a one-shot claim per checkout session id, so a
// confirmation observed twice (re-render, redirect plus webhook) credits once.
type ConfirmationGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewConfirmationGuard returns a guard whose claims expire after ttl.
func NewConfirmationGuard(rdb *redis.Client, ttl time.Duration) *ConfirmationGuard {
	if ttl <= 0 {
		ttl = confirmationTTL
	}
	return &ConfirmationGuard{rdb: rdb, ttl: ttl}
}

// Claim returns true for exactly one caller per key until the claim is released or expires.
func (g *ConfirmationGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, confirmationKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

// Release gives the claim back so a failed confirmation can be retried.
func (g *ConfirmationGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, confirmationKeyPrefix+key).Err()
}

// Persist keeps the claim until it is released explicitly.
func (g *ConfirmationGuard) Persist(ctx context.Context, key string) error {
	return g.rdb.Persist(ctx, confirmationKeyPrefix+key).Err()
}
