package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// DeviceIdentity is the panel's persisted identity: the serial generated
// on first launch and, once an admin has paired it, the bound room.
type DeviceIdentity struct {
	DeviceSerial string `toml:"device_serial"`
	RoomID       string `toml:"room_id"`
	RoomName     string `toml:"room_name"`
}

// Paired reports whether the device has been bound to a room
func (d DeviceIdentity) Paired() bool {
	return d.RoomID != ""
}

// DefaultIdentityPath returns the identity file location, overridable via
// KIOSK_IDENTITY_FILE
func DefaultIdentityPath() string {
	return getEnv("KIOSK_IDENTITY_FILE", "/var/lib/kiosk/identity.toml")
}

// LoadIdentity reads the device identity from the given path. A missing
// file is not an error; it means the device is unpaired and returns a
// zero identity.
func LoadIdentity(path string) (DeviceIdentity, error) {
	var identity DeviceIdentity

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return identity, nil
		}
		return identity, fmt.Errorf("read identity file: %w", err)
	}

	if err := toml.Unmarshal(data, &identity); err != nil {
		return DeviceIdentity{}, fmt.Errorf("parse identity file: %w", err)
	}

	return identity, nil
}

// SaveIdentity writes the device identity to the given path, creating
// directories as needed
func SaveIdentity(path string, identity DeviceIdentity) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}

	data, err := toml.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}

	return nil
}
