package lifecycle

import (
	"time"

	"github.com/roomboard/kiosk/internal/models"
)

// CheckInWindow is how long after a meeting's start a check-in is
// accepted before the backend auto-releases the room. The release itself
// is server-authoritative; the panel only renders the countdown.
const CheckInWindow = 15 * time.Minute

// UrgencyThreshold is the remaining check-in time below which the
// countdown is rendered as urgent
const UrgencyThreshold = 5 * time.Minute

// CheckInRemaining returns the time left to check in for the meeting at
// the given instant, clamped to zero. It is recomputed from the absolute
// start time on every call so it self-corrects after the panel has been
// suspended, rather than decrementing a counter tick by tick.
func CheckInRemaining(m *models.Meeting, now time.Time) time.Duration {
	deadline := m.StartTime.Add(CheckInWindow)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckInUrgent reports whether the check-in countdown has crossed the
// urgency threshold
func CheckInUrgent(m *models.Meeting, now time.Time) bool {
	return CheckInRemaining(m, now) < UrgencyThreshold
}
