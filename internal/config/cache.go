package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  TTL is also the upper bound on how stale a cached calendar
// or quote can be; booking creation never reads through the cache.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	MethodList   []string      `envconfig:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"path_query"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"1048576"`

	// Methods is MethodList upper-cased as a set.
	Methods map[string]bool `ignored:"true"`
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := envconfig.Process("", &c); err != nil {
		return CacheConfig{}, err
	}
	c.Methods = make(map[string]bool, len(c.MethodList))
	for _, m := range c.MethodList {
		if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
			c.Methods[m] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	return c, nil
}
