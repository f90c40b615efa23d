// Package lifecycle drives the panel's screen state machine
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roomboard/kiosk/internal/backend"
	"github.com/roomboard/kiosk/internal/models"
)

// ErrNoCurrentMeeting is returned by actions that need a meeting occupying
// the room when there is none
var ErrNoCurrentMeeting = errors.New("no current meeting")

// Backend is the subset of the API client the controller mutates through
type Backend interface {
	CheckIn(ctx context.Context, meetingID string) error
	EndMeeting(ctx context.Context, meetingID string) error
	BookAdHoc(ctx context.Context, roomID string, durationMinutes int) (*models.Meeting, error)
}

// Snapshot is the read-only view handed to the rendering layer
type Snapshot struct {
	RoomState *models.RoomState
	Screen    models.Screen
	Loading   bool
	Error     string
}

// Controller translates room state and user intent into the active screen
// and outbound mutating calls. Optimistic local updates bridge the gap
// until the next authoritative snapshot, which always wins by replacing
// the whole state.
type Controller struct {
	backend Backend
	roomID  string
	now     func() time.Time

	mu            sync.Mutex
	state         *models.RoomState
	adHocOverride bool
	errMsg        string
	inflight      map[string]struct{}
}

// NewController creates a controller for the given room
func NewController(b Backend, roomID string) *Controller {
	return NewControllerWithClock(b, roomID, time.Now)
}

// NewControllerWithClock creates a controller using the given clock,
// letting tests simulate the passage of time
func NewControllerWithClock(b Backend, roomID string, now func() time.Time) *Controller {
	return &Controller{
		backend:  b,
		roomID:   roomID,
		now:      now,
		inflight: make(map[string]struct{}),
	}
}

// OnRoomState accepts an authoritative snapshot from the sync engine. It
// replaces any optimistic guess wholesale; an occupied snapshot also
// clears the sticky ad-hoc override since the flow it protected has
// become visible server-side.
func (c *Controller) OnRoomState(state *models.RoomState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state.Clone()
	if c.state != nil && c.state.Status == models.RoomStatusOccupied {
		c.adHocOverride = false
	}
}

// View returns the current snapshot for rendering
func (c *Controller) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RoomState: c.state.Clone(),
		Screen:    c.deriveScreen(),
		Loading:   c.state == nil,
		Error:     c.errMsg,
	}
}

// Screen returns the active screen derived from the latest state
func (c *Controller) Screen() models.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deriveScreen()
}

// deriveScreen is the core state machine: a pure function of the latest
// snapshot and the sticky override. Callers must hold c.mu.
func (c *Controller) deriveScreen() models.Screen {
	if c.state != nil && c.state.Status == models.RoomStatusOccupied && c.state.CurrentMeeting != nil {
		if c.state.CurrentMeeting.CheckedIn {
			return models.ScreenMeeting
		}
		return models.ScreenCheckIn
	}
	if c.adHocOverride {
		// A stale available snapshot must not snap the panel back to
		// idle mid booking flow
		return models.ScreenAdHocBooking
	}
	return models.ScreenIdle
}

// BeginAdHocBooking enters the booking screen and arms the sticky
// override so stale snapshots cannot cancel the flow
func (c *Controller) BeginAdHocBooking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adHocOverride = true
	c.errMsg = ""
}

// CancelAdHocBooking abandons the booking flow and returns to idle
func (c *Controller) CancelAdHocBooking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adHocOverride = false
	c.errMsg = ""
}

// CheckIn confirms attendance for the current meeting. On success the
// local copy is optimistically marked checked in before the next poll
// confirms it. Repeating the call for an already checked-in meeting is a
// harmless no-op; the backend stays the source of truth.
func (c *Controller) CheckIn(ctx context.Context) error {
	c.mu.Lock()
	if c.state == nil || c.state.CurrentMeeting == nil {
		c.mu.Unlock()
		return ErrNoCurrentMeeting
	}
	meetingID := c.state.CurrentMeeting.ID
	key := "checkin:" + meetingID
	if _, pending := c.inflight[key]; pending {
		c.mu.Unlock()
		return nil
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	err := c.backend.CheckIn(ctx, meetingID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)

	if err != nil {
		c.errMsg = userMessage(err)
		return err
	}

	c.errMsg = ""
	if c.state != nil && c.state.CurrentMeeting != nil && c.state.CurrentMeeting.ID == meetingID {
		next := c.state.Clone()
		if !next.CurrentMeeting.CheckedIn {
			at := c.now()
			next.CurrentMeeting.CheckedIn = true
			next.CurrentMeeting.CheckedInAt = &at
		}
		c.state = next
	}
	return nil
}

// EndEarly ends the current meeting before its scheduled end and returns
// how much room time was freed. On success the snapshot flips to
// available with no current meeting in one replacement, never exposing a
// half-updated state.
func (c *Controller) EndEarly(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	if c.state == nil || c.state.CurrentMeeting == nil {
		c.mu.Unlock()
		return 0, ErrNoCurrentMeeting
	}
	meetingID := c.state.CurrentMeeting.ID
	scheduledEnd := c.state.CurrentMeeting.EndTime
	key := "end:" + meetingID
	if _, pending := c.inflight[key]; pending {
		c.mu.Unlock()
		return 0, nil
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	err := c.backend.EndMeeting(ctx, meetingID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)

	if err != nil {
		c.errMsg = userMessage(err)
		return 0, err
	}

	freed := scheduledEnd.Sub(c.now())
	if freed < 0 {
		freed = 0
	}

	c.errMsg = ""
	if c.state != nil && c.state.CurrentMeeting != nil && c.state.CurrentMeeting.ID == meetingID {
		next := c.state.Clone()
		next.CurrentMeeting = nil
		next.Status = models.RoomStatusAvailable
		c.state = next
	}
	return freed, nil
}

// BookAdHoc books the room from the panel for the given duration. On
// success the snapshot optimistically flips to occupied with the returned
// meeting, putting the panel on the check-in screen; the sticky override
// stays armed until a server snapshot confirms the occupancy.
func (c *Controller) BookAdHoc(ctx context.Context, durationMinutes int) error {
	c.mu.Lock()
	if _, pending := c.inflight["book"]; pending {
		c.mu.Unlock()
		return nil
	}
	c.inflight["book"] = struct{}{}
	c.adHocOverride = true
	c.mu.Unlock()

	meeting, err := c.backend.BookAdHoc(ctx, c.roomID, durationMinutes)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, "book")

	if err != nil {
		if backend.IsRejected(err) {
			c.errMsg = fmt.Sprintf("Room is no longer available: %s", backend.RejectionMessage(err))
		} else {
			c.errMsg = userMessage(err)
		}
		return err
	}

	c.errMsg = ""
	next := c.state.Clone()
	if next == nil {
		next = &models.RoomState{Room: models.Room{ID: c.roomID}}
	}
	next.Status = models.RoomStatusOccupied
	next.CurrentMeeting = meeting.Clone()
	next.LastUpdated = c.now()
	c.state = next
	return nil
}

// Error returns the current user-facing error message, if any
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// userMessage converts an action error into user-facing text
func userMessage(err error) string {
	if backend.IsRejected(err) {
		return backend.RejectionMessage(err)
	}
	return "Could not reach the room service. Please try again."
}
