package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/capliquify/backend/internal/domain/integration"
)

const defaultSnapshotKeyPrefix = "snapshot:"

// RedisSnapshotCache implements integration.SnapshotCache on Redis, for
// deployments where several instances must share the latest snapshots.
// The Redis key TTL is the retention window, not the freshness window:
// staleness is computed at read time from the stored staleAt, so stale
// entries stay servable exactly like the in-memory variant.
type RedisSnapshotCache struct {
	client    *redis.Client
	config    CacheConfig
	keyPrefix string
	clock     func() time.Time
}

// redisSnapshotEnvelope is the stored wire form. The payload is kept raw so
// it can be decoded into the right concrete type per domain.
type redisSnapshotEnvelope struct {
	TenantID   uuid.UUID          `json:"tenant_id"`
	Kind       integration.Kind   `json:"kind"`
	Domain     integration.Domain `json:"domain"`
	Payload    json.RawMessage    `json:"payload"`
	CapturedAt time.Time          `json:"captured_at"`
	StaleAt    time.Time          `json:"stale_at"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port pair.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewRedisSnapshotCache creates a Redis-backed snapshot cache, verifying
// connectivity up front.
func NewRedisSnapshotCache(cfg RedisConfig, cacheConfig CacheConfig) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSnapshotCacheWithClient(client, cacheConfig), nil
}

// NewRedisSnapshotCacheWithClient wraps an existing client. Useful for
// tests and for sharing one client across components.
func NewRedisSnapshotCacheWithClient(client *redis.Client, cacheConfig CacheConfig) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client:    client,
		config:    cacheConfig,
		keyPrefix: defaultSnapshotKeyPrefix,
		clock:     time.Now,
	}
}

func (c *RedisSnapshotCache) key(tenantID uuid.UUID, domain integration.Domain) string {
	return c.keyPrefix + snapshotKey(tenantID, domain)
}

// Get returns the cached snapshot, flagged stale past its freshness window.
func (c *RedisSnapshotCache) Get(ctx context.Context, tenantID uuid.UUID, domain integration.Domain) (*integration.CachedSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(tenantID, domain)).Bytes()
	if err == redis.Nil {
		return nil, integration.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}

	var envelope redisSnapshotEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	payload, err := integration.DecodePayload(envelope.Domain, envelope.Payload)
	if err != nil {
		return nil, err
	}

	stale := c.clock().After(envelope.StaleAt)
	source := integration.SourceLive
	if stale {
		source = integration.SourceCachedStale
	}
	return &integration.CachedSnapshot{
		Snapshot: integration.Snapshot{
			TenantID:   envelope.TenantID,
			Kind:       envelope.Kind,
			Domain:     envelope.Domain,
			Payload:    payload,
			CapturedAt: envelope.CapturedAt,
			Source:     source,
		},
		IsStale: stale,
	}, nil
}

// Put stores a snapshot with the retention window as the Redis expiry.
// A write whose capturedAt precedes the stored entry's is dropped, so a
// slower sync for an integration sharing the domain cannot replace a
// newer capture. The read-then-write check is sufficient because writes
// per tenant+integration are single-flight upstream.
func (c *RedisSnapshotCache) Put(ctx context.Context, snapshot integration.Snapshot, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.TTL
	}
	key := c.key(snapshot.TenantID, snapshot.Domain)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var stored redisSnapshotEnvelope
		if json.Unmarshal(data, &stored) == nil && stored.CapturedAt.After(snapshot.CapturedAt) {
			return nil
		}
	} else if err != redis.Nil {
		return fmt.Errorf("failed to read snapshot from Redis: %w", err)
	}

	payload, err := json.Marshal(snapshot.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot payload: %w", err)
	}
	envelope := redisSnapshotEnvelope{
		TenantID:   snapshot.TenantID,
		Kind:       snapshot.Kind,
		Domain:     snapshot.Domain,
		Payload:    payload,
		CapturedAt: snapshot.CapturedAt,
		StaleAt:    c.clock().Add(ttl),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot envelope: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.config.Retention).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

// Ensure RedisSnapshotCache implements the SnapshotCache interface
var _ integration.SnapshotCache = (*RedisSnapshotCache)(nil)
