package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server backing the response cache and the
// rate limiter.  Host and Port take precedence over Addr.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
	var c RedisConfig
	err := envconfig.Process("", &c)
	return c, err
}

// Address returns the host:port to dial.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient dials Redis and pings it.  It returns nil when the
// server cannot be reached; callers then run without cache and rate
// limiting.
func NewRedisClient(c RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
