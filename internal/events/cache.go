package events

import (
	"context"
	"sync"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache stores resolved dataset names so the events feed does not hammer the
// registry with one lookup per run per refresh.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}}
}

func (mc *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	e, ok := mc.entries[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return "", false
	}
	return e.value, true
}

func (mc *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	mc.entries[key] = e
}

// RedisCache backs the lookup cache with redis so resolved names survive
// restarts and are shared between replicas.
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(connectionString string) (*RedisCache, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, err
	}
	return &RedisCache{Client: redis.NewClient(opts)}, nil
}

func (rc *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := rc.Client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (rc *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := rc.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warn("failed to cache value", "key", key, "error", err.Error())
	}
}

func (rc *RedisCache) Health(ctx context.Context) models.ServiceHealthResp {
	rsp := models.ServiceHealthResp{
		Service:     models.REDIS_CACHE,
		Status:      models.STATUS_UP,
		HealthIssue: models.HEALTH_ISSUE_NONE,
	}
	if err := rc.Client.Ping(ctx).Err(); err != nil {
		return rsp.BuildErrorResponse(err)
	}
	return rsp
}
