// Package cache defines the offline room-state cache interface
package cache

import (
	"context"

	"github.com/roomboard/kiosk/internal/models"
)

// Cache stores the last known good RoomState per room with a freshness
// TTL. Entries older than the TTL are treated as absent, never served.
// The sync engine writes on every successful refresh and reads only when
// a refresh fails; any error on read is treated as a cache miss.
type Cache interface {
	SaveRoomState(ctx context.Context, state *models.RoomState) error
	GetRoomState(ctx context.Context, roomID string) (*models.RoomState, error)
}
