package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

// ResultCache memoizes the pre-grouping pipeline output per fingerprint.
// Implementations must tolerate concurrent readers and writers: a read
// during a write observes either the previous complete entry or the new
// one, never a partial entry.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) ([]models.Event, bool)
	Put(ctx context.Context, fingerprint string, events []models.Event, ttl time.Duration)
	Close() error
}

// MemoryResultCache is the in-process implementation. Entries are
// immutable once stored and replaced wholesale on recomputation; expired
// entries are evicted lazily on lookup and by a background sweep.
type MemoryResultCache struct {
	mu      sync.RWMutex
	entries map[string]*models.CacheEntry
	logger  *logger.Logger
	done    chan struct{}
	closed  sync.Once
}

func NewMemoryResultCache(sweepInterval time.Duration, log *logger.Logger) *MemoryResultCache {
	cache := &MemoryResultCache{
		entries: make(map[string]*models.CacheEntry),
		logger:  log,
		done:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go cache.sweep(sweepInterval)
	}

	return cache
}

func (cache *MemoryResultCache) Get(ctx context.Context, fingerprint string) ([]models.Event, bool) {
	cache.mu.RLock()
	entry, ok := cache.entries[fingerprint]
	cache.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if entry.Expired(time.Now()) {
		cache.mu.Lock()
		if current, still := cache.entries[fingerprint]; still && current == entry {
			delete(cache.entries, fingerprint)
		}
		cache.mu.Unlock()
		return nil, false
	}

	return entry.Events, true
}

func (cache *MemoryResultCache) Put(ctx context.Context, fingerprint string, events []models.Event, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := time.Now()
	entry := &models.CacheEntry{
		Fingerprint: fingerprint,
		Events:      events,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	cache.mu.Lock()
	cache.entries[fingerprint] = entry
	cache.mu.Unlock()
}

func (cache *MemoryResultCache) Len() int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return len(cache.entries)
}

func (cache *MemoryResultCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cache.done:
			return
		case <-ticker.C:
			now := time.Now()
			cache.mu.Lock()
			for fingerprint, entry := range cache.entries {
				if entry.Expired(now) {
					delete(cache.entries, fingerprint)
				}
			}
			cache.mu.Unlock()
		}
	}
}

func (cache *MemoryResultCache) Close() error {
	cache.closed.Do(func() { close(cache.done) })
	return nil
}

// RedisResultCache shares memoized results across processes. All cache
// errors degrade to misses; the pipeline is correct without the cache,
// just slower.
type RedisResultCache struct {
	client *redis.Client
	logger *logger.Logger
	config config.RedisConfig
}

func NewRedisResultCache(cfg config.RedisConfig, log *logger.Logger) (*RedisResultCache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.PoolSize = cfg.PoolSize
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	cache := &RedisResultCache{
		client: redis.NewClient(opt),
		logger: log,
		config: cfg,
	}

	if err := cache.testConnection(); err != nil {
		return nil, fmt.Errorf("connection to Redis failed: %w", err)
	}

	log.Info("Redis result cache initialized",
		"url", cfg.URL,
		"pool_size", cfg.PoolSize)

	return cache, nil
}

func (cache *RedisResultCache) testConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cache.client.Ping(ctx).Err()
}

func (cache *RedisResultCache) key(fingerprint string) string {
	return fmt.Sprintf("discovery:%s:events", fingerprint)
}

func (cache *RedisResultCache) Get(ctx context.Context, fingerprint string) ([]models.Event, bool) {
	startTime := time.Now()

	payload, err := cache.client.Get(ctx, cache.key(fingerprint)).Result()
	if err != nil {
		if err != redis.Nil {
			cache.logger.LogService("cache", "get", time.Since(startTime), map[string]interface{}{
				"fingerprint": fingerprint,
			}, err)
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		cache.logger.WithError(err).Warn("Failed to decode cached entry, treating as miss",
			"fingerprint", fingerprint)
		return nil, false
	}

	// Redis TTL already bounds the lifetime; the embedded expiry guards
	// against entries written with a longer TTL by an older config.
	if entry.Expired(time.Now()) {
		return nil, false
	}

	return entry.Events, true
}

func (cache *RedisResultCache) Put(ctx context.Context, fingerprint string, events []models.Event, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	startTime := time.Now()

	now := time.Now()
	entry := models.CacheEntry{
		Fingerprint: fingerprint,
		Events:      events,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	payload, err := json.Marshal(&entry)
	if err != nil {
		cache.logger.WithError(err).Error("Failed to encode cache entry",
			"fingerprint", fingerprint)
		return
	}

	if err := cache.client.Set(ctx, cache.key(fingerprint), payload, ttl).Err(); err != nil {
		cache.logger.LogService("cache", "put", time.Since(startTime), map[string]interface{}{
			"fingerprint": fingerprint,
			"events":      len(events),
		}, err)
	}
}

func (cache *RedisResultCache) HealthCheck(ctx context.Context) error {
	if err := cache.client.Ping(ctx).Err(); err != nil {
		return models.NewExternalError("REDIS_UNHEALTHY", "redis connection unhealthy").WithCause(err)
	}
	return nil
}

func (cache *RedisResultCache) Close() error {
	return cache.client.Close()
}
