package config

import "time"

// CacheConfig tunes the Redis response cache in front of the profile card
// endpoint. Caching is off when Enabled is false or Redis is unavailable.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables. Profile cards change rarely, but
// a rename should show up quickly, so the TTL stays short.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache:profile"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 16<<10),
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c
}
