package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

const defaultReapInterval = time.Hour

// InMemorySnapshotCache implements integration.SnapshotCache in process
// memory. Expiry marks entries stale at read time instead of evicting
// them: after a failed sync the dashboard keeps serving the last known
// good value. A background reaper removes entries past the retention
// window.
type InMemorySnapshotCache struct {
	entries sync.Map // map[string]*snapshotEntry
	config  CacheConfig
	logger  *zap.Logger
	clock   func() time.Time
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// snapshotEntry wraps a cached snapshot with its freshness deadline.
type snapshotEntry struct {
	snapshot integration.Snapshot
	staleAt  time.Time
	storedAt time.Time
}

// InMemorySnapshotCacheOption is a functional option for configuring the cache
type InMemorySnapshotCacheOption func(*InMemorySnapshotCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config CacheConfig) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.config = config
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.logger = logger
	}
}

// WithInMemoryClock overrides the clock (tests)
func WithInMemoryClock(clock func() time.Time) InMemorySnapshotCacheOption {
	return func(c *InMemorySnapshotCache) {
		c.clock = clock
	}
}

// NewInMemorySnapshotCache creates a new in-memory snapshot cache and
// starts its retention reaper.
func NewInMemorySnapshotCache(opts ...InMemorySnapshotCacheOption) *InMemorySnapshotCache {
	cache := &InMemorySnapshotCache{
		config: DefaultCacheConfig(),
		logger: zap.NewNop(),
		clock:  time.Now,
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.reapExpired()

	return cache
}

func snapshotKey(tenantID uuid.UUID, domain integration.Domain) string {
	return tenantID.String() + ":" + string(domain)
}

// Get returns the cached snapshot for tenant+domain, flagged stale when its
// freshness window has passed.
func (c *InMemorySnapshotCache) Get(ctx context.Context, tenantID uuid.UUID, domain integration.Domain) (*integration.CachedSnapshot, error) {
	value, ok := c.entries.Load(snapshotKey(tenantID, domain))
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, integration.ErrSnapshotNotFound
	}

	entry := value.(*snapshotEntry)
	now := c.clock()
	if now.Sub(entry.storedAt) > c.config.Retention {
		// Past retention: behave as if the reaper already ran.
		c.entries.Delete(snapshotKey(tenantID, domain))
		atomic.AddInt64(&c.misses, 1)
		return nil, integration.ErrSnapshotNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	stale := now.After(entry.staleAt)
	snapshot := entry.snapshot
	if stale {
		snapshot.Source = integration.SourceCachedStale
	}
	return &integration.CachedSnapshot{Snapshot: snapshot, IsStale: stale}, nil
}

// Put stores a snapshot. A zero ttl falls back to the configured default.
// Writes with a capturedAt older than the stored entry's are dropped:
// integrations sharing a data domain sync independently, and a slower run
// that started earlier must not overwrite a newer capture.
func (c *InMemorySnapshotCache) Put(ctx context.Context, snapshot integration.Snapshot, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.TTL
	}
	now := c.clock()
	key := snapshotKey(snapshot.TenantID, snapshot.Domain)
	entry := &snapshotEntry{
		snapshot: snapshot,
		staleAt:  now.Add(ttl),
		storedAt: now,
	}

	for {
		current, loaded := c.entries.Load(key)
		if !loaded {
			if _, raced := c.entries.LoadOrStore(key, entry); !raced {
				return nil
			}
			continue
		}
		stored := current.(*snapshotEntry)
		if stored.snapshot.CapturedAt.After(snapshot.CapturedAt) {
			c.logger.Debug("dropped out-of-order snapshot write",
				zap.String("tenant_id", snapshot.TenantID.String()),
				zap.String("domain", string(snapshot.Domain)),
				zap.Time("stored_captured_at", stored.snapshot.CapturedAt),
				zap.Time("dropped_captured_at", snapshot.CapturedAt))
			return nil
		}
		if c.entries.CompareAndSwap(key, current, entry) {
			return nil
		}
	}
}

// Stats returns hit/miss counters for monitoring.
func (c *InMemorySnapshotCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Stop terminates the reaper goroutine. Safe to call more than once.
func (c *InMemorySnapshotCache) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

// reapExpired periodically drops entries past the retention window.
func (c *InMemorySnapshotCache) reapExpired() {
	ticker := time.NewTicker(defaultReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.reapOnce()
		}
	}
}

func (c *InMemorySnapshotCache) reapOnce() {
	now := c.clock()
	reaped := 0
	c.entries.Range(func(key, value any) bool {
		entry := value.(*snapshotEntry)
		if now.Sub(entry.storedAt) > c.config.Retention {
			c.entries.Delete(key)
			reaped++
		}
		return true
	})
	if reaped > 0 {
		c.logger.Debug("reaped snapshots past retention", zap.Int("count", reaped))
	}
}

// Ensure InMemorySnapshotCache implements the SnapshotCache interface
var _ integration.SnapshotCache = (*InMemorySnapshotCache)(nil)
