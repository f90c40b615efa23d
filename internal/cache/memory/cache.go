// Package memory provides an in-memory implementation of the offline cache
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roomboard/kiosk/internal/models"
)

// ErrNotFound is returned when no unexpired snapshot exists for a room
var ErrNotFound = errors.New("no cached room state")

// entry pairs a snapshot with the time it was written. The timestamp is
// owned by the cache; callers never see it.
type entry struct {
	state     *models.RoomState
	timestamp time.Time
}

// Cache implements the cache interface with in-memory storage
type Cache struct {
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewCache creates a new in-memory cache with the given freshness TTL
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWithClock(ttl, time.Now)
}

// NewCacheWithClock creates a cache using the given clock, letting tests
// simulate the passage of time
func NewCacheWithClock(ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// SaveRoomState stores a snapshot for its room, resetting the entry's age
func (c *Cache) SaveRoomState(ctx context.Context, state *models.RoomState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[state.Room.ID] = entry{
		state:     state.Clone(),
		timestamp: c.now(),
	}
	return nil
}

// GetRoomState returns the cached snapshot for a room, or ErrNotFound if
// none exists or the entry has outlived the TTL
func (c *Cache) GetRoomState(ctx context.Context, roomID string) (*models.RoomState, error) {
	c.mu.RLock()
	e, exists := c.entries[roomID]
	c.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	if c.now().Sub(e.timestamp) >= c.ttl {
		// Expired entries are dropped rather than served stale
		c.mu.Lock()
		if current, ok := c.entries[roomID]; ok && current.timestamp.Equal(e.timestamp) {
			delete(c.entries, roomID)
		}
		c.mu.Unlock()
		return nil, ErrNotFound
	}

	return e.state.Clone(), nil
}
