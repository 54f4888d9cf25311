package config

import (
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache used on the member listing
// endpoint. Caching is skipped entirely when disabled or when no Redis
// client is available.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int // largest cacheable body; zero or less means unlimited
}

// LoadCacheConfig reads cache settings with defaults suited to short-lived
// listing responses.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range strings.Split(envStr("CACHE_METHODS", "GET"), ",") {
		if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
			methods[m] = true
		}
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
