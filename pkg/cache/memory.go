package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCache 进程内缓存，值以序列化字节保存，读写语义与 Redis 驱动一致
type memoryCache struct {
	store      *gocache.Cache
	serializer Serializer
	keyPrefix  string
	defaultTTL time.Duration
}

func newMemoryCache(cfg *Config) *memoryCache {
	return &memoryCache{
		store:      gocache.New(cfg.DefaultTTL, cfg.Memory.CleanupInterval),
		serializer: cfg.Serializer,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
	}
}

func (m *memoryCache) key(k string) string { return m.keyPrefix + k }

func (m *memoryCache) Get(_ context.Context, key string, value any) error {
	raw, found := m.store.Get(m.key(key))
	if !found {
		return ErrCacheNotFound
	}
	data, ok := raw.([]byte)
	if !ok {
		return ErrCacheSerialization.WithMessage(fmt.Sprintf("unexpected item type %T", raw))
	}
	if err := m.serializer.Unmarshal(data, value); err != nil {
		return ErrCacheSerialization.WithError(err)
	}
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := m.serializer.Marshal(value)
	if err != nil {
		return ErrCacheSerialization.WithError(err)
	}
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	m.store.Set(m.key(key), data, ttl)
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.store.Delete(m.key(k))
	}
	return nil
}

func (m *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, found := m.store.Get(m.key(key))
	return found, nil
}

// TTL 剩余生存时间，永不过期返回 -1
func (m *memoryCache) TTL(_ context.Context, key string) (time.Duration, error) {
	_, exp, found := m.store.GetWithExpiration(m.key(key))
	if !found {
		return 0, ErrCacheNotFound
	}
	if exp.IsZero() {
		return -1, nil
	}
	return time.Until(exp), nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

func (m *memoryCache) Close() error {
	m.store.Flush()
	return nil
}
