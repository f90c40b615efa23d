// Package config provides configuration management for the application
package config

import (
	"os"
	"strconv"
	"time"
)

// BackendConfig holds connection settings for the room service backend
type BackendConfig struct {
	BaseURL string
	// Timeout for individual HTTP requests
	RequestTimeout time.Duration
	// PollInterval is how often the sync engine refreshes room state
	PollInterval time.Duration
	// EnablePush subscribes to the backend's SSE event stream in
	// addition to polling
	EnablePush bool
}

// CacheConfig holds settings for the offline room-state cache
type CacheConfig struct {
	// Redis is used when RedisEnabled; otherwise the in-memory cache is used
	RedisEnabled bool
	// RedisURI is prioritized if provided, otherwise individual connection parameters are used
	RedisURI      string
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	// TTL bounds how long a cached snapshot counts as a valid fallback
	TTL time.Duration
}

// PairingConfig holds timing settings for the device pairing flow
type PairingConfig struct {
	// PollInterval is how often pairing status is checked against the backend
	PollInterval time.Duration
	// CountdownTick is how often the code countdown is recomputed
	CountdownTick time.Duration
	// ExpiredGrace is how long the expired message stays on screen before
	// a fresh code is requested
	ExpiredGrace time.Duration
}

// GetBackendConfig loads backend configuration from environment variables
func GetBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:        getEnv("KIOSK_BACKEND_URL", "http://localhost:8080"),
		RequestTimeout: getEnvDuration("KIOSK_REQUEST_TIMEOUT", 30*time.Second),
		PollInterval:   getEnvDuration("KIOSK_POLL_INTERVAL", 30*time.Second),
		EnablePush:     getEnvBool("KIOSK_ENABLE_PUSH", false),
	}
}

// GetCacheConfig loads offline-cache configuration from environment variables
func GetCacheConfig() CacheConfig {
	db, _ := strconv.Atoi(getEnv("KIOSK_REDIS_DB", "0"))

	return CacheConfig{
		RedisEnabled:  getEnvBool("KIOSK_REDIS_ENABLED", false),
		RedisURI:      getEnv("KIOSK_REDIS_URI", ""),
		RedisHost:     getEnv("KIOSK_REDIS_HOST", "localhost"),
		RedisPort:     getEnv("KIOSK_REDIS_PORT", "6379"),
		RedisUsername: getEnv("KIOSK_REDIS_USERNAME", ""),
		RedisPassword: getEnv("KIOSK_REDIS_PASSWORD", ""),
		RedisDB:       db,
		KeyPrefix:     getEnv("KIOSK_REDIS_KEY_PREFIX", "kiosk:"),
		TTL:           getEnvDuration("KIOSK_CACHE_TTL", 5*time.Minute),
	}
}

// GetPairingConfig loads pairing flow configuration from environment variables
func GetPairingConfig() PairingConfig {
	return PairingConfig{
		PollInterval:  getEnvDuration("KIOSK_PAIRING_POLL_INTERVAL", 3*time.Second),
		CountdownTick: getEnvDuration("KIOSK_PAIRING_COUNTDOWN_TICK", time.Second),
		ExpiredGrace:  getEnvDuration("KIOSK_PAIRING_EXPIRED_GRACE", 2*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration retrieves a duration environment variable in Go duration
// syntax (e.g. "30s", "5m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
