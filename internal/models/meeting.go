package models

import (
	"time"
)

// Organizer identifies the person who booked a meeting
type Organizer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Meeting represents a single booking occupying or scheduled for a room
type Meeting struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Organizer     Organizer  `json:"organizer"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	AttendeeCount int        `json:"attendee_count"`
	CheckedIn     bool       `json:"checked_in"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
}

// IsAdHoc reports whether the meeting is a walk-in booking made from the
// panel itself rather than a scheduled one (denoted by zero attendees)
func (m *Meeting) IsAdHoc() bool {
	return m.AttendeeCount == 0
}

// Duration returns the scheduled length of the meeting
func (m *Meeting) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// Progress returns how far the meeting has advanced at the given instant,
// as a ratio clamped to [0,1]. It is recomputed from the immutable meeting
// bounds on every call, never accumulated tick by tick
func (m *Meeting) Progress(now time.Time) float64 {
	total := m.EndTime.Sub(m.StartTime)
	if total <= 0 {
		return 1
	}
	ratio := float64(now.Sub(m.StartTime)) / float64(total)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Clone returns a deep copy of the meeting
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	clone := *m
	if m.CheckedInAt != nil {
		at := *m.CheckedInAt
		clone.CheckedInAt = &at
	}
	return &clone
}
