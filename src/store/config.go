package store

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig holds connection settings for the Redis session store.
type RedisConfig struct {
	Addr     string        // Redis address, default "localhost:6379"
	Password string        // Redis password, default ""
	DB       int           // Redis database number, default 0
	Prefix   string        // Key prefix, default "clinic:presence:"
	TTL      time.Duration // Session expiry, 0 keeps the key until logout
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "clinic:presence:",
	}
}

// RedisConfigFromEnv loads Redis configuration from environment variables.
// Falls back to defaults for any missing values.
func RedisConfigFromEnv() *RedisConfig {
	cfg := DefaultRedisConfig()

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Password = pw
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_SESSION_PREFIX"); prefix != "" {
		cfg.Prefix = prefix
	}
	if ttl := os.Getenv("REDIS_SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d >= 0 {
			cfg.TTL = d
		}
	}
	return cfg
}
