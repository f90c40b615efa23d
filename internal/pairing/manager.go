// Package pairing bootstraps an unconfigured panel onto a room
package pairing

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/roomboard/kiosk/internal/backend"
	"github.com/roomboard/kiosk/internal/config"
	"github.com/roomboard/kiosk/internal/models"
	"github.com/roomboard/kiosk/internal/utils"
	"github.com/teris-io/shortid"
)

// CodeClient is the subset of the API client the pairing flow needs
type CodeClient interface {
	CreatePairingCode(ctx context.Context, deviceSerial string) (*backend.PairingCode, error)
	GetPairingStatus(ctx context.Context, code string) (*backend.PairingStatusResult, error)
}

// CompletionFunc is invoked exactly once, when an admin binds the device
// to a room
type CompletionFunc func(roomID, roomName string)

// View is what the pairing screen renders
type View struct {
	Code        string
	SecondsLeft int
	Status      models.PairingStatus
	ErrorMsg    string
}

// Manager runs pairing sessions until the device is bound to a room. One
// session is active at a time; requesting a new code supersedes the old
// session and cancels both of its timers together, so no stale poll can
// fire after the handover.
type Manager struct {
	client   CodeClient
	cfg      config.PairingConfig
	serial   string
	onPaired CompletionFunc
	now      func() time.Time

	mu         sync.Mutex
	session    *models.PairingSession
	errMsg     string
	cancel     context.CancelFunc
	graceTimer *time.Timer
	completed  bool
	stopped    bool
}

// NewManager creates a pairing manager with a freshly generated device
// serial. The serial is stable for the manager's lifetime; collisions are
// irrelevant at panel fleet scale, this is not a security boundary.
func NewManager(client CodeClient, cfg config.PairingConfig, onPaired CompletionFunc) (*Manager, error) {
	return NewManagerWithClock(client, cfg, onPaired, time.Now)
}

// NewManagerWithClock creates a manager using the given clock, letting
// tests simulate the passage of time
func NewManagerWithClock(client CodeClient, cfg config.PairingConfig, onPaired CompletionFunc, now func() time.Time) (*Manager, error) {
	serial, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate device serial: %w", err)
	}

	return &Manager{
		client:   client,
		cfg:      cfg,
		serial:   "panel-" + serial,
		onPaired: onPaired,
		now:      now,
	}, nil
}

// DeviceSerial returns the per-session device serial
func (m *Manager) DeviceSerial() string {
	return m.serial
}

// Start begins the first pairing session
func (m *Manager) Start() {
	m.begin()
}

// Retry restarts after a failed code request. It is the manual
// counterpart to the automatic restart that follows expiry.
func (m *Manager) Retry() {
	m.begin()
}

// Stop cancels the active session and any pending auto-restart
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.teardownLocked()
}

// View returns the current pairing screen data
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := View{Status: models.PairingStatusLoading, ErrorMsg: m.errMsg}
	if m.session != nil {
		view.Code = m.session.Code
		view.Status = m.session.Status
		if m.session.Status == models.PairingStatusPending {
			view.SecondsLeft = m.session.SecondsLeft(m.now())
		}
	}
	return view
}

// begin supersedes any active session and starts a new one
func (m *Manager) begin() {
	m.mu.Lock()
	if m.completed || m.stopped {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.errMsg = ""
	m.session = &models.PairingSession{
		DeviceSerial: m.serial,
		Status:       models.PairingStatusLoading,
	}
	m.mu.Unlock()

	go m.run(ctx)
}

// teardownLocked cancels the session timers and the grace restart.
// Callers must hold m.mu.
func (m *Manager) teardownLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
}

// run drives a single session: request a code, then tick the countdown
// and poll the status until the session resolves or is superseded
func (m *Manager) run(ctx context.Context) {
	code, err := m.client.CreatePairingCode(ctx, m.serial)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		log.Printf("Pairing code request failed: %v", err)
		m.session.Status = models.PairingStatusError
		m.errMsg = "Could not reach the room service. Tap to retry."
		return
	}

	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	session := &models.PairingSession{
		DeviceSerial: m.serial,
		Code:         code.Code,
		ExpiresAt:    code.ExpiresAt,
		Status:       models.PairingStatusPending,
	}
	m.session = session
	m.mu.Unlock()

	// Both tickers live and die with the session context
	countdown := time.NewTicker(m.cfg.CountdownTick)
	defer countdown.Stop()
	poll := time.NewTicker(m.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-countdown.C:
			// Remaining time is recomputed from the absolute expiry,
			// never decremented, so it survives suspension
			if session.SecondsLeft(m.now()) <= 0 {
				m.expire(ctx)
				return
			}

		case <-poll.C:
			result, err := m.client.GetPairingStatus(ctx, session.Code)
			if err != nil {
				// Transient poll failures mean "not yet paired"
				continue
			}
			switch result.Status {
			case "paired":
				m.complete(ctx, result.RoomID, result.RoomName)
				return
			case "expired":
				m.expire(ctx)
				return
			}
		}
	}
}

// complete finishes pairing at most once and hands the room to the caller
func (m *Manager) complete(ctx context.Context, roomID, roomName string) {
	m.mu.Lock()
	if ctx.Err() != nil || m.completed {
		m.mu.Unlock()
		return
	}
	m.completed = true
	m.teardownLocked()
	m.mu.Unlock()

	log.Printf("Device %s paired to room %s", utils.SanitizeLogString(m.serial), utils.SanitizeLogString(roomID))
	if m.onPaired != nil {
		m.onPaired(roomID, roomName)
	}
}

// expire marks the session expired and schedules the automatic restart
// after the grace period, giving the user time to read the message
func (m *Manager) expire(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	m.teardownLocked()
	m.session.Status = models.PairingStatusExpired
	m.graceTimer = time.AfterFunc(m.cfg.ExpiredGrace, m.begin)
}
