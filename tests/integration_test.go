package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomboard/kiosk/internal/backend"
	"github.com/roomboard/kiosk/internal/cache/memory"
	"github.com/roomboard/kiosk/internal/lifecycle"
	"github.com/roomboard/kiosk/internal/models"
	roomsync "github.com/roomboard/kiosk/internal/sync"
)

// fakeRoomService is an in-process stand-in for the room backend. It
// serves the enveloped contract and can be toggled offline to exercise
// the cache fallback path.
type fakeRoomService struct {
	mu      sync.Mutex
	state   models.RoomState
	offline bool
}

func newFakeRoomService() *fakeRoomService {
	start := time.Now().Truncate(time.Second)
	return &fakeRoomService{
		state: models.RoomState{
			Room:   models.Room{ID: "room42", Name: "Fishbowl", Capacity: 8},
			Status: models.RoomStatusOccupied,
			CurrentMeeting: &models.Meeting{
				ID:            "m1",
				Title:         "Standup",
				StartTime:     start,
				EndTime:       start.Add(30 * time.Minute),
				AttendeeCount: 4,
			},
			LastUpdated: start,
		},
	}
}

func (f *fakeRoomService) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeRoomService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /rooms/room42/state", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.offline {
			// Drop the connection mid-request to look like an outage
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
			return
		}
		writeEnvelope(w, f.state)
	})

	mux.HandleFunc("POST /meetings/m1/checkin", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.state.CurrentMeeting != nil && !f.state.CurrentMeeting.CheckedIn {
			now := time.Now()
			f.state.CurrentMeeting.CheckedIn = true
			f.state.CurrentMeeting.CheckedInAt = &now
		}
		writeEnvelope(w, struct{}{})
	})

	mux.HandleFunc("POST /meetings/m1/end", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.CurrentMeeting = nil
		f.state.Status = models.RoomStatusAvailable
		writeEnvelope(w, struct{}{})
	})

	return mux
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestPanelLifecycleAgainstFakeBackend(t *testing.T) {
	service := newFakeRoomService()
	server := httptest.NewServer(service.handler())
	defer server.Close()

	client := backend.NewClient(server.URL, 2*time.Second)
	offlineCache := memory.NewCache(5 * time.Minute)
	engine := roomsync.NewEngine(client, offlineCache)
	defer engine.Close()

	controller := lifecycle.NewController(client, "room42")
	engine.Subscribe(controller.OnRoomState)

	ctx := context.Background()

	// Initial sync: occupied, not checked in
	_, err := engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenCheckIn, controller.Screen())

	// Check in from the panel; the optimistic update advances the screen
	require.NoError(t, controller.CheckIn(ctx))
	assert.Equal(t, models.ScreenMeeting, controller.Screen())

	// The next authoritative snapshot agrees with the optimistic guess
	_, err = engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenMeeting, controller.Screen())

	// End early frees the room
	freed, err := controller.EndEarly(ctx)
	require.NoError(t, err)
	assert.Greater(t, freed, 25*time.Minute)
	assert.Equal(t, models.ScreenIdle, controller.Screen())

	_, err = engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenIdle, controller.Screen())
}

func TestOutageServesCachedStateWithoutBlanking(t *testing.T) {
	service := newFakeRoomService()
	server := httptest.NewServer(service.handler())
	defer server.Close()

	client := backend.NewClient(server.URL, time.Second)
	offlineCache := memory.NewCache(5 * time.Minute)
	engine := roomsync.NewEngine(client, offlineCache)
	defer engine.Close()

	controller := lifecycle.NewController(client, "room42")
	engine.Subscribe(controller.OnRoomState)

	ctx := context.Background()

	_, err := engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	assert.Empty(t, engine.LastError())

	// Backend goes dark; the cached snapshot keeps the screen alive and
	// the diagnostic is surfaced alongside it
	service.setOffline(true)
	state, err := engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.RoomStatusOccupied, state.Status)
	assert.NotEmpty(t, engine.LastError())
	assert.Equal(t, models.ScreenCheckIn, controller.Screen())

	// Backend recovers; the sticky error clears on the next clean refresh
	service.setOffline(false)
	_, err = engine.Refresh(ctx, "room42")
	require.NoError(t, err)
	assert.Empty(t, engine.LastError())
}
