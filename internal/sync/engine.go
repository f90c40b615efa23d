// Package sync maintains the authoritative room state for one panel
package sync

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/roomboard/kiosk/internal/cache"
	"github.com/roomboard/kiosk/internal/models"
	"github.com/roomboard/kiosk/internal/utils"
)

// Fetcher fetches the current room state from the backend
type Fetcher interface {
	GetRoomState(ctx context.Context, roomID string) (*models.RoomState, error)
}

// Subscriber receives every accepted RoomState snapshot. Each subscriber
// gets its own copy; mutating it cannot affect the engine or other
// subscribers.
type Subscriber func(*models.RoomState)

// Engine owns the in-memory RoomState for the panel's room. It refreshes
// the state from the backend, polls on an interval, accepts pushed
// updates from the backend's event stream, and falls back to the offline
// cache when a fetch fails. Construct one per process; there is no
// ambient global instance.
type Engine struct {
	fetcher Fetcher
	cache   cache.Cache

	// deliverMu serializes state commits and subscriber notification so
	// subscribers observe snapshots in acceptance order
	deliverMu sync.Mutex

	mu          sync.RWMutex
	roomID      string
	state       *models.RoomState
	lastErr     string
	subscribers map[int]Subscriber
	nextSubID   int
	cancelPoll  context.CancelFunc
	pollDone    chan struct{}
	cancelPush  context.CancelFunc
}

// NewEngine creates a sync engine backed by the given fetcher and cache
func NewEngine(fetcher Fetcher, cache cache.Cache) *Engine {
	return &Engine{
		fetcher:     fetcher,
		cache:       cache,
		subscribers: make(map[int]Subscriber),
	}
}

// State returns a copy of the latest accepted snapshot, or nil if none
// has been accepted yet
func (e *Engine) State() *models.RoomState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// LastError returns the diagnostic from the most recent failed refresh,
// or the empty string after a clean one
func (e *Engine) LastError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

// Subscribe registers a callback invoked with every accepted snapshot.
// The returned function removes the subscription.
func (e *Engine) Subscribe(callback Subscriber) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = callback
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// Refresh fetches the room state once. On success the snapshot is
// committed, written to the offline cache and any sticky error is
// cleared. On failure an unexpired cache entry is served instead, with
// the error recorded but the returned state non-nil; without one the
// previous in-memory state is kept so the screen never blanks on a
// transient failure.
func (e *Engine) Refresh(ctx context.Context, roomID string) (*models.RoomState, error) {
	state, err := e.fetcher.GetRoomState(ctx, roomID)
	if err == nil {
		e.accept(ctx, state, true)
		return state.Clone(), nil
	}

	log.Printf("Failed to fetch state for room %s: %v", utils.SanitizeLogString(roomID), err)

	cached, cacheErr := e.cache.GetRoomState(ctx, roomID)
	if cacheErr == nil {
		// Degraded success: serve the last known good snapshot but keep
		// the diagnostic visible
		e.mu.Lock()
		e.lastErr = err.Error()
		e.mu.Unlock()
		e.accept(ctx, cached, false)
		return cached.Clone(), nil
	}

	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
	return e.State(), err
}

// StartPolling begins refreshing the given room on a fixed interval. At
// most one polling loop is active; starting a new one supersedes any
// prior loop. Each tick runs its refresh to completion before the next
// tick is taken, so a slow fetch can never deliver after a later one.
func (e *Engine) StartPolling(roomID string, interval time.Duration) {
	e.StopPolling()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.roomID = roomID
	e.cancelPoll = cancel
	e.pollDone = done
	e.mu.Unlock()

	go func() {
		defer close(done)

		// Prime the state before the first tick
		if _, err := e.Refresh(ctx, roomID); err != nil {
			log.Printf("Initial refresh failed for room %s: %v", utils.SanitizeLogString(roomID), err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.Refresh(ctx, roomID); err != nil {
					log.Printf("Poll refresh failed for room %s: %v", utils.SanitizeLogString(roomID), err)
				}
			}
		}
	}()
}

// StopPolling cancels the polling loop and clears the tracked room id.
// It waits for an in-flight tick to finish so no refresh outlives the call.
func (e *Engine) StopPolling() {
	e.mu.Lock()
	cancel := e.cancelPoll
	done := e.pollDone
	e.cancelPoll = nil
	e.pollDone = nil
	e.roomID = ""
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// StartPush subscribes to the backend's SSE event stream for the room.
// Pushed snapshots go through the same accept path as polled ones.
// Starting a new subscription supersedes any prior one.
func (e *Engine) StartPush(eventsURL string) {
	e.StopPush()

	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.cancelPush = cancel
	e.mu.Unlock()

	client := sse.NewClient(eventsURL)
	go func() {
		err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if len(msg.Data) == 0 {
				return
			}
			var state models.RoomState
			if err := json.Unmarshal(msg.Data, &state); err != nil {
				log.Printf("Ignoring malformed pushed room state: %v", err)
				return
			}
			e.accept(ctx, &state, true)
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Push subscription ended: %v", err)
		}
	}()
}

// StopPush cancels the SSE subscription, if any
func (e *Engine) StopPush() {
	e.mu.Lock()
	cancel := e.cancelPush
	e.cancelPush = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close tears down all background activity
func (e *Engine) Close() {
	e.StopPolling()
	e.StopPush()
}

// accept commits a snapshot and notifies subscribers in order. fresh
// snapshots clear any sticky error and are persisted to the offline
// cache; cache fallbacks are delivered but written nowhere.
func (e *Engine) accept(ctx context.Context, state *models.RoomState, fresh bool) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	committed := state.Clone()

	e.mu.Lock()
	e.state = committed
	if fresh {
		e.lastErr = ""
	}
	subs := make([]Subscriber, 0, len(e.subscribers))
	for _, s := range e.subscribers {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	if fresh && e.cache != nil {
		if err := e.cache.SaveRoomState(ctx, committed); err != nil {
			log.Printf("Failed to cache state for room %s: %v", utils.SanitizeLogString(committed.Room.ID), err)
		}
	}

	for _, s := range subs {
		e.deliver(s, committed.Clone())
	}
}

// deliver invokes one subscriber, isolating the rest from its panics
func (e *Engine) deliver(s Subscriber, state *models.RoomState) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Subscriber panicked on room state update: %v", r)
		}
	}()
	s(state)
}
