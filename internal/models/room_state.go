package models

import "time"

// RoomStatus represents the occupancy status of a room
type RoomStatus string

const (
	RoomStatusAvailable RoomStatus = "available"
	RoomStatusOccupied  RoomStatus = "occupied"
	RoomStatusUpcoming  RoomStatus = "upcoming"
	RoomStatusOffline   RoomStatus = "offline"
)

// RoomState is the authoritative snapshot of a room as known to the panel.
// It is a value object: every update replaces the whole snapshot, nothing
// mutates one in place. Invariants: Status == occupied iff CurrentMeeting
// is non-nil; Status == upcoming implies CurrentMeeting is nil and
// NextMeeting is non-nil.
type RoomState struct {
	Room             Room       `json:"room"`
	Status           RoomStatus `json:"status"`
	CurrentMeeting   *Meeting   `json:"current_meeting,omitempty"`
	NextMeeting      *Meeting   `json:"next_meeting,omitempty"`
	UpcomingMeetings []Meeting  `json:"upcoming_meetings,omitempty"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// Clone returns a deep copy of the snapshot so that subscribers can never
// corrupt the engine's own copy through a shared pointer
func (s *RoomState) Clone() *RoomState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.CurrentMeeting = s.CurrentMeeting.Clone()
	clone.NextMeeting = s.NextMeeting.Clone()
	if s.UpcomingMeetings != nil {
		clone.UpcomingMeetings = make([]Meeting, len(s.UpcomingMeetings))
		for i := range s.UpcomingMeetings {
			clone.UpcomingMeetings[i] = *s.UpcomingMeetings[i].Clone()
		}
	}
	return &clone
}
