package cache

import "time"

// CacheConfig holds the shared snapshot cache policy.
type CacheConfig struct {
	// TTL is the freshness window; entries past it are served stale, not
	// evicted
	TTL time.Duration `mapstructure:"ttl"`
	// Retention bounds how long a stale entry survives before the reaper
	// (or the Redis key TTL) removes it
	Retention time.Duration `mapstructure:"retention"`
}

// DefaultCacheConfig returns a 20-minute freshness window and 7-day
// retention. The TTL deliberately exceeds the 15-minute sync interval so a
// healthy pipeline is never stale.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:       20 * time.Minute,
		Retention: 7 * 24 * time.Hour,
	}
}
