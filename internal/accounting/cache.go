package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// statsCacheTTL keeps aggregate statistics hot for a short period only;
// the ledger remains the source of truth.
const statsCacheTTL = 30 * time.Second

// RedisClient is the subset of the redis client used by the stats cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// statsCache is an optional short-TTL read cache for per-user aggregate
// statistics. All operations degrade to a no-op on a nil cache and to a
// cache miss on any redis failure.
type statsCache struct {
	client RedisClient
}

func newStatsCache(client RedisClient) *statsCache {
	if client == nil {
		return nil
	}
	return &statsCache{client: client}
}

func statsCacheKey(userID string, window Window) string {
	return fmt.Sprintf("aibridge:stats:%s:%d:%d", userID, window.Start.Unix(), window.End.Unix())
}

func (c *statsCache) get(ctx context.Context, userID string, window Window) (*UsageStats, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, errGet := c.client.Get(ctx, statsCacheKey(userID, window)).Bytes()
	if errGet != nil {
		return nil, false
	}
	var stats UsageStats
	if errUnmarshal := json.Unmarshal(payload, &stats); errUnmarshal != nil {
		return nil, false
	}
	return &stats, true
}

func (c *statsCache) set(ctx context.Context, userID string, window Window, stats *UsageStats) {
	if c == nil || c.client == nil || stats == nil {
		return
	}
	payload, errMarshal := json.Marshal(stats)
	if errMarshal != nil {
		return
	}
	if errSet := c.client.Set(ctx, statsCacheKey(userID, window), payload, statsCacheTTL).Err(); errSet != nil {
		log.WithError(errSet).Debug("accounting: stats cache set failed")
	}
}

// invalidateUser drops the cached daily and monthly aggregates for a user
// after a ledger write, so threshold evaluation sees fresh numbers.
func (a *Accountant) invalidateUser(ctx context.Context, userID string) {
	c := a.cache
	if c == nil || c.client == nil {
		return
	}
	now := time.Now()
	keys := []string{
		statsCacheKey(userID, DailyWindow(now)),
		statsCacheKey(userID, MonthlyWindow(now)),
	}
	if errDel := c.client.Del(ctx, keys...).Err(); errDel != nil {
		log.WithError(errDel).Debug("accounting: stats cache invalidation failed")
	}
}
