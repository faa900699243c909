package domain

import (
	"context"
	"time"
)

// Cache stores memoized backend results keyed by input fingerprint.
// Supports two-phase caching: local LRU + Redis.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "none", "memory" or "redis"
	Type string `json:"type" mapstructure:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `json:"localMaxSize" mapstructure:"localMaxSize"`
	LocalTTL     time.Duration `json:"localTTL" mapstructure:"localTTL"`

	// TTL applied to every cached backend result
	ResultTTL time.Duration `json:"resultTTL" mapstructure:"resultTTL"`

	// Redis settings
	RedisAddr     string `json:"redisAddr" mapstructure:"redisAddr"`
	RedisPassword string `json:"redisPassword" mapstructure:"redisPassword"`
	RedisDB       int    `json:"redisDB" mapstructure:"redisDB"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enableTwoPhase" mapstructure:"enableTwoPhase"` // If true, check local first, then Redis
}
