// Package redis provides a Redis/Valkey implementation of the offline cache
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roomboard/kiosk/internal/config"
	"github.com/roomboard/kiosk/internal/models"
)

// ErrNotFound is returned when no unexpired snapshot exists for a room
var ErrNotFound = errors.New("no cached room state")

// Cache implements the cache interface with Redis storage. Freshness is
// enforced by Redis key expiry, so a read never has to inspect timestamps.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewCache creates a new Redis-backed cache
func NewCache(cfg config.CacheConfig) (*Cache, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.RedisURI != "" {
		opt, err := redis.ParseURL(cfg.RedisURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		if opt.DB == 0 {
			opt.DB = cfg.RedisDB
		}
		if opt.Password == "" && cfg.RedisPassword != "" {
			opt.Password = cfg.RedisPassword
		}

		client = redis.NewClient(opt)
	} else {
		address := fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort)

		client = redis.NewClient(&redis.Options{
			Addr:     address,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// roomStateKey returns the Redis key for a room's cached state
func (c *Cache) roomStateKey(roomID string) string {
	return fmt.Sprintf("%sroom-state:%s", c.keyPrefix, roomID)
}

// SaveRoomState stores a snapshot with the configured TTL as key expiry
func (c *Cache) SaveRoomState(ctx context.Context, state *models.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}

	key := c.roomStateKey(state.Room.ID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save room state: %w", err)
	}

	return nil
}

// GetRoomState retrieves the cached snapshot for a room. Expired keys are
// gone from Redis, so any hit is within the TTL by construction.
func (c *Cache) GetRoomState(ctx context.Context, roomID string) (*models.RoomState, error) {
	key := c.roomStateKey(roomID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room state: %w", err)
	}

	var state models.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room state: %w", err)
	}

	return &state, nil
}
