package pairing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roomboard/kiosk/internal/backend"
	"github.com/roomboard/kiosk/internal/config"
	"github.com/roomboard/kiosk/internal/models"
	"github.com/roomboard/kiosk/internal/pairing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCodeClient scripts pairing-code and status responses
type fakeCodeClient struct {
	mu          sync.Mutex
	createErr   error
	createCalls int
	expiresIn   time.Duration
	codes       []string

	statusResults []backend.PairingStatusResult
	statusErr     error
	statusCalls   int
}

func (f *fakeCodeClient) CreatePairingCode(ctx context.Context, deviceSerial string) (*backend.PairingCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	code := "CODE1"
	if f.createCalls < len(f.codes) {
		code = f.codes[f.createCalls]
	}
	f.createCalls++
	return &backend.PairingCode{Code: code, ExpiresAt: time.Now().Add(f.expiresIn)}, nil
}

func (f *fakeCodeClient) GetPairingStatus(ctx context.Context, code string) (*backend.PairingStatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		f.statusCalls++
		return nil, f.statusErr
	}
	i := f.statusCalls
	if i >= len(f.statusResults) {
		i = len(f.statusResults) - 1
	}
	f.statusCalls++
	return &f.statusResults[i], nil
}

func (f *fakeCodeClient) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.statusCalls
}

func fastConfig() config.PairingConfig {
	return config.PairingConfig{
		PollInterval:  5 * time.Millisecond,
		CountdownTick: 5 * time.Millisecond,
		ExpiredGrace:  20 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestPairingHappyPath(t *testing.T) {
	client := &fakeCodeClient{
		expiresIn: 90 * time.Second,
		statusResults: []backend.PairingStatusResult{
			{Status: "pending"},
			{Status: "pending"},
			{Status: "paired", RoomID: "room42", RoomName: "Fishbowl"},
		},
	}

	var mu sync.Mutex
	var pairedRooms []string
	manager, err := pairing.NewManager(client, fastConfig(), func(roomID, roomName string) {
		mu.Lock()
		defer mu.Unlock()
		pairedRooms = append(pairedRooms, roomID)
		assert.Equal(t, "Fishbowl", roomName)
	})
	require.NoError(t, err)
	defer manager.Stop()

	assert.NotEmpty(t, manager.DeviceSerial())

	manager.Start()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pairedRooms) > 0
	}, "pairing never completed")

	// Completion fires exactly once, even with more paired responses queued
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"room42"}, pairedRooms)
	mu.Unlock()
}

func TestPairingViewWhilePending(t *testing.T) {
	client := &fakeCodeClient{
		expiresIn:     90 * time.Second,
		statusResults: []backend.PairingStatusResult{{Status: "pending"}},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)
	defer manager.Stop()

	manager.Start()

	waitFor(t, func() bool {
		return manager.View().Status == models.PairingStatusPending
	}, "session never reached pending")

	view := manager.View()
	assert.Equal(t, "CODE1", view.Code)
	assert.Greater(t, view.SecondsLeft, 80)
	assert.Empty(t, view.ErrorMsg)
}

func TestPairingCodeRequestFailureNeedsManualRetry(t *testing.T) {
	client := &fakeCodeClient{
		createErr: &backend.NetworkError{Err: errors.New("connection refused")},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)
	defer manager.Stop()

	manager.Start()

	waitFor(t, func() bool {
		return manager.View().Status == models.PairingStatusError
	}, "session never reached error")
	assert.NotEmpty(t, manager.View().ErrorMsg)

	// No automatic retry from the error state
	created, _ := client.calls()
	time.Sleep(50 * time.Millisecond)
	createdAfter, _ := client.calls()
	assert.Equal(t, created, createdAfter)

	// Manual retry after the backend recovers
	client.mu.Lock()
	client.createErr = nil
	client.expiresIn = 90 * time.Second
	client.statusResults = []backend.PairingStatusResult{{Status: "pending"}}
	client.mu.Unlock()

	manager.Retry()
	waitFor(t, func() bool {
		return manager.View().Status == models.PairingStatusPending
	}, "retry never reached pending")
}

func TestPairingExpiredServerResponseRegenerates(t *testing.T) {
	client := &fakeCodeClient{
		expiresIn:     90 * time.Second,
		codes:         []string{"OLD1", "NEW2"},
		statusResults: []backend.PairingStatusResult{{Status: "expired"}, {Status: "pending"}},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)
	defer manager.Stop()

	manager.Start()

	// The expired response transitions the session, then the grace delay
	// elapses and a fresh code is requested automatically
	waitFor(t, func() bool {
		view := manager.View()
		return view.Status == models.PairingStatusPending && view.Code == "NEW2"
	}, "expired session never regenerated")

	created, _ := client.calls()
	assert.GreaterOrEqual(t, created, 2)
}

func TestPairingCountdownExpiryRegenerates(t *testing.T) {
	client := &fakeCodeClient{
		// Already expired when issued, so the countdown trips immediately
		expiresIn:     -time.Second,
		codes:         []string{"OLD1", "NEW2"},
		statusResults: []backend.PairingStatusResult{{Status: "pending"}},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)
	defer manager.Stop()

	manager.Start()

	waitFor(t, func() bool {
		created, _ := client.calls()
		return created >= 2
	}, "countdown expiry never regenerated the code")
}

func TestPairingPollFailuresAreSwallowed(t *testing.T) {
	client := &fakeCodeClient{
		expiresIn: 90 * time.Second,
		statusErr: &backend.NetworkError{Err: errors.New("timeout")},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)
	defer manager.Stop()

	manager.Start()

	waitFor(t, func() bool {
		_, polls := client.calls()
		return polls >= 3
	}, "status polling stopped")

	// Poll failures leave the session pending, not errored
	assert.Equal(t, models.PairingStatusPending, manager.View().Status)
}

func TestStopCancelsTimers(t *testing.T) {
	client := &fakeCodeClient{
		expiresIn:     90 * time.Second,
		statusResults: []backend.PairingStatusResult{{Status: "pending"}},
	}

	manager, err := pairing.NewManager(client, fastConfig(), nil)
	require.NoError(t, err)

	manager.Start()
	waitFor(t, func() bool {
		_, polls := client.calls()
		return polls >= 1
	}, "status polling never started")

	manager.Stop()
	time.Sleep(20 * time.Millisecond)
	_, polls := client.calls()
	time.Sleep(50 * time.Millisecond)
	_, pollsAfter := client.calls()
	assert.Equal(t, polls, pollsAfter)
}
