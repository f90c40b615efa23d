package models

// Screen identifies which panel screen is active. Screens are derived
// from the current RoomState on every update and never serialized.
type Screen string

const (
	ScreenIdle         Screen = "idle"
	ScreenCheckIn      Screen = "checkin"
	ScreenMeeting      Screen = "meeting"
	ScreenEndEarly     Screen = "endEarly"
	ScreenAdHocBooking Screen = "adHocBooking"
	ScreenPairing      Screen = "pairing"
)
