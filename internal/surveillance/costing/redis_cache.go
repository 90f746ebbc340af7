package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedCap wraps a CapChecker with a short-lived Redis cache so a
// high-rate evidence acquisition path doesn't hit the usage ledger's
// SpendSince query on every single dispatch — multi-instance deployments
// share one cached verdict instead of each computing (and re-querying)
// its own. Grounded on the teacher's internal/session.Manager, which
// layers a Redis-backed cache in front of otherwise-per-request database
// reads using the same client/TTL idiom.
type CachedCap struct {
	Inner CapChecker
	Redis *redis.Client
	TTL   time.Duration // 0 defaults to 10s
}

func NewCachedCap(inner CapChecker, rdb *redis.Client, ttl time.Duration) *CachedCap {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &CachedCap{Inner: inner, Redis: rdb, TTL: ttl}
}

const capCacheKey = "surveillance:costing:cap_active"

func (c *CachedCap) CapActive(ctx context.Context) (bool, string, error) {
	if cached, err := c.Redis.Get(ctx, capCacheKey).Result(); err == nil {
		if cached == "" {
			return false, "", nil
		}
		return true, cached, nil
	} else if err != redis.Nil {
		// Redis unreachable: fail open to the real checker rather than
		// blocking dispatch on a cache outage.
		return c.Inner.CapActive(ctx)
	}

	active, reason, err := c.Inner.CapActive(ctx)
	if err != nil {
		return false, "", err
	}

	value := ""
	if active {
		value = reason
	}
	if setErr := c.Redis.Set(ctx, capCacheKey, value, c.TTL).Err(); setErr != nil {
		return active, reason, nil // cache write failure doesn't affect the real verdict
	}
	return active, reason, nil
}

// DailySpendCounter mirrors the teacher's ZAdd/Expire session-counter
// idiom (internal/session.Manager.CreateSession) to keep a fast INCRBYFLOAT
// running total of today's AI spend, avoiding a full ledger scan on every
// CapActive call when Redis is configured. The ledger remains the system
// of record; this is an accelerator, not a replacement.
type DailySpendCounter struct {
	Redis *redis.Client
}

func dailySpendKey(day time.Time) string {
	return fmt.Sprintf("surveillance:costing:spend:%s", day.UTC().Format("2006-01-02"))
}

func (d *DailySpendCounter) Add(ctx context.Context, usd float64) error {
	key := dailySpendKey(time.Now())
	pipe := d.Redis.Pipeline()
	pipe.IncrByFloat(ctx, key, usd)
	pipe.Expire(ctx, key, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (d *DailySpendCounter) Today(ctx context.Context) (float64, error) {
	val, err := d.Redis.Get(ctx, dailySpendKey(time.Now())).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
