package models

import "time"

// PairingStatus represents the lifecycle state of a pairing session
type PairingStatus string

const (
	PairingStatusLoading PairingStatus = "loading"
	PairingStatusPending PairingStatus = "pending"
	PairingStatusExpired PairingStatus = "expired"
	PairingStatusError   PairingStatus = "error"
)

// PairingSession tracks one attempt to bind an unconfigured device to a
// room. Exactly one session is active at a time per device; a session is
// replaced wholesale when pairing succeeds or the code expires.
type PairingSession struct {
	DeviceSerial string        `json:"device_serial"`
	Code         string        `json:"code"`
	ExpiresAt    time.Time     `json:"expires_at"`
	Status       PairingStatus `json:"status"`
}

// SecondsLeft returns the whole seconds remaining before the pairing code
// expires, recomputed from the absolute expiry so it stays correct across
// clock drift and device sleep. Never negative.
func (p *PairingSession) SecondsLeft(now time.Time) int {
	remaining := int(p.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
