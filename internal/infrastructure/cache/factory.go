package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// SnapshotCacheFactory creates snapshot caches based on configuration.
type SnapshotCacheFactory struct {
	redisConfig           RedisConfig
	cacheConfig           CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SnapshotCacheFactoryOption is a functional option for configuring the factory
type SnapshotCacheFactoryOption func(*SnapshotCacheFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSnapshotCacheFactory creates a new factory.
func NewSnapshotCacheFactory(redisConfig RedisConfig, cacheConfig CacheConfig, opts ...SnapshotCacheFactoryOption) *SnapshotCacheFactory {
	f := &SnapshotCacheFactory{
		redisConfig:           redisConfig,
		cacheConfig:           cacheConfig,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache tries Redis first and falls back to in-memory when allowed.
// In-memory caches do not share state across instances, so a multi-instance
// deployment behind the fallback would re-sync per instance.
func (f *SnapshotCacheFactory) CreateCache() (integration.SnapshotCache, error) {
	if f.redisConfig.Host != "" {
		store, err := NewRedisSnapshotCache(f.redisConfig, f.cacheConfig)
		if err == nil {
			f.logger.Info("using Redis snapshot cache")
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for snapshot cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory snapshot cache",
			zap.Error(err),
		)
	}
	return NewInMemorySnapshotCache(
		WithInMemoryConfig(f.cacheConfig),
		WithInMemoryLogger(f.logger),
	), nil
}
