package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig configures the Redis token bucket guarding booking
// creation.
type RateLimitConfig struct {
	Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"10"`
	RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"6s"`
	TTL            time.Duration `envconfig:"RATE_LIMIT_TTL" default:"10m"`
	KeyStrategy    string        `envconfig:"RATE_LIMIT_KEY_STRATEGY" default:"ip_user_route"`
	Prefix         string        `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
	Debug          bool          `envconfig:"RATE_LIMIT_DEBUG" default:"false"`
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables and clamps them
// to usable values.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	var c RateLimitConfig
	if err := envconfig.Process("", &c); err != nil {
		return RateLimitConfig{}, err
	}
	return c.normalize(), nil
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
