// Package cache provides the initialization for cache implementations
package cache

import (
	"log"

	"github.com/roomboard/kiosk/internal/cache/memory"
	"github.com/roomboard/kiosk/internal/cache/redis"
	"github.com/roomboard/kiosk/internal/config"
)

// NewCache builds the configured cache implementation. Redis is used when
// enabled and reachable; otherwise it falls back to the in-memory cache so
// the panel still has an offline fallback within the current process.
func NewCache(cfg config.CacheConfig) Cache {
	if cfg.RedisEnabled {
		c, err := redis.NewCache(cfg)
		if err == nil {
			log.Println("Using Redis offline cache")
			return c
		}
		log.Printf("Redis cache unavailable, falling back to memory: %v", err)
	}

	return memory.NewCache(cfg.TTL)
}
