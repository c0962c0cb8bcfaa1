package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capliquify/backend/internal/domain/integration"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T) (*InMemorySnapshotCache, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC)}
	cache := NewInMemorySnapshotCache(
		WithInMemoryConfig(DefaultCacheConfig()),
		WithInMemoryClock(clock.Now),
	)
	t.Cleanup(cache.Stop)
	return cache, clock
}

func financialSnapshot(tenantID uuid.UUID, capturedAt time.Time) integration.Snapshot {
	return integration.NewSnapshot(tenantID, integration.KindXero, integration.WorkingCapital{
		CurrentAssets: decimal.NewFromInt(1000),
		Currency:      "USD",
	}, capturedAt)
}

func TestInMemoryCacheRoundTrip(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()
	snapshot := financialSnapshot(tenantID, clock.Now())

	require.NoError(t, cache.Put(context.Background(), snapshot, 20*time.Minute))

	got, err := cache.Get(context.Background(), tenantID, integration.DomainFinancial)
	require.NoError(t, err)
	assert.False(t, got.IsStale)
	assert.Equal(t, integration.SourceLive, got.Snapshot.Source)
	assert.Equal(t, snapshot.CapturedAt, got.Snapshot.CapturedAt)

	wc, ok := got.Snapshot.Payload.(integration.WorkingCapital)
	require.True(t, ok)
	assert.Equal(t, "1000", wc.CurrentAssets.String())
}

func TestInMemoryCacheMissReturnsNotFound(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), uuid.New(), integration.DomainOrders)
	assert.ErrorIs(t, err, integration.ErrSnapshotNotFound)
}

func TestInMemoryCacheServesStaleAfterTTL(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(tenantID, clock.Now()), 20*time.Minute))

	// Expiry must not evict: an entry past its TTL is flagged stale but
	// still served with its original payload.
	clock.Advance(45 * time.Minute)

	got, err := cache.Get(context.Background(), tenantID, integration.DomainFinancial)
	require.NoError(t, err)
	assert.True(t, got.IsStale)
	assert.Equal(t, integration.SourceCachedStale, got.Snapshot.Source)
}

func TestInMemoryCacheDropsEntriesPastRetention(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(tenantID, clock.Now()), 20*time.Minute))

	clock.Advance(8 * 24 * time.Hour)

	_, err := cache.Get(context.Background(), tenantID, integration.DomainFinancial)
	assert.ErrorIs(t, err, integration.ErrSnapshotNotFound)
}

func TestInMemoryCacheReaper(t *testing.T) {
	cache, clock := newTestCache(t)
	fresh := uuid.New()
	old := uuid.New()
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(old, clock.Now()), time.Minute))
	clock.Advance(8 * 24 * time.Hour)
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(fresh, clock.Now()), time.Minute))

	cache.reapOnce()

	_, ok := cache.entries.Load(snapshotKey(old, integration.DomainFinancial))
	assert.False(t, ok, "entry past retention must be reaped")
	_, ok = cache.entries.Load(snapshotKey(fresh, integration.DomainFinancial))
	assert.True(t, ok)
}

func TestInMemoryCachePartitionsByTenantAndDomain(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(tenantA, clock.Now()), time.Minute))

	_, err := cache.Get(context.Background(), tenantB, integration.DomainFinancial)
	assert.ErrorIs(t, err, integration.ErrSnapshotNotFound, "tenants must never see each other's snapshots")

	_, err = cache.Get(context.Background(), tenantA, integration.DomainInventory)
	assert.ErrorIs(t, err, integration.ErrSnapshotNotFound, "domains are cached independently")
}

func TestInMemoryCacheLatestWriteWins(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()
	first := financialSnapshot(tenantID, clock.Now())
	require.NoError(t, cache.Put(context.Background(), first, time.Hour))

	clock.Advance(15 * time.Minute)
	second := integration.NewSnapshot(tenantID, integration.KindXero, integration.WorkingCapital{
		CurrentAssets: decimal.NewFromInt(2000),
		Currency:      "USD",
	}, clock.Now())
	require.NoError(t, cache.Put(context.Background(), second, time.Hour))

	got, err := cache.Get(context.Background(), tenantID, integration.DomainFinancial)
	require.NoError(t, err)
	wc := got.Snapshot.Payload.(integration.WorkingCapital)
	assert.Equal(t, "2000", wc.CurrentAssets.String())
	assert.Equal(t, second.CapturedAt, got.Snapshot.CapturedAt)
}

func TestInMemoryCacheDropsOlderCapture(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()

	// Amazon and Unleashed both feed the inventory domain. The Unleashed
	// run started earlier and finishes after Amazon's: its snapshot carries
	// an older capturedAt and must not replace the newer one.
	newer := integration.NewSnapshot(tenantID, integration.KindAmazon, integration.InventorySummary{
		TotalValue: decimal.NewFromInt(5000),
		TotalSKUs:  7,
	}, clock.Now())
	require.NoError(t, cache.Put(context.Background(), newer, time.Hour))

	older := integration.NewSnapshot(tenantID, integration.KindUnleashed, integration.InventorySummary{
		TotalValue: decimal.NewFromInt(4200),
		TotalSKUs:  6,
	}, clock.Now().Add(-10*time.Minute))
	require.NoError(t, cache.Put(context.Background(), older, time.Hour))

	got, err := cache.Get(context.Background(), tenantID, integration.DomainInventory)
	require.NoError(t, err)
	assert.Equal(t, integration.KindAmazon, got.Snapshot.Kind)
	assert.Equal(t, newer.CapturedAt, got.Snapshot.CapturedAt)
	inv := got.Snapshot.Payload.(integration.InventorySummary)
	assert.Equal(t, "5000", inv.TotalValue.String())
}

func TestInMemoryCacheStats(t *testing.T) {
	cache, clock := newTestCache(t)
	tenantID := uuid.New()
	require.NoError(t, cache.Put(context.Background(), financialSnapshot(tenantID, clock.Now()), time.Minute))

	_, _ = cache.Get(context.Background(), tenantID, integration.DomainFinancial)
	_, _ = cache.Get(context.Background(), uuid.New(), integration.DomainFinancial)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
