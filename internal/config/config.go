package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values
const (
	DefaultAddr         = "0.0.0.0:3000"
	DefaultRoomTimeout  = 5 * time.Minute
	DefaultReapInterval = time.Minute
)

// Config holds application configuration
type Config struct {
	// Addr is the listen address for the HTTP server
	Addr string

	// RoomTimeout is how long an empty room survives before eviction
	RoomTimeout time.Duration

	// ReapInterval is the cleanup task's wake-up period
	ReapInterval time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	Addr         string
	RoomTimeout  time.Duration
	ReapInterval time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	addr := opts.Addr
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		addr = DefaultAddr
	}

	roomTimeout := opts.RoomTimeout
	if roomTimeout == 0 {
		var err error
		roomTimeout, err = durationFromEnv("ROOM_TIMEOUT", DefaultRoomTimeout)
		if err != nil {
			return nil, err
		}
	}

	reapInterval := opts.ReapInterval
	if reapInterval == 0 {
		var err error
		reapInterval, err = durationFromEnv("REAP_INTERVAL", DefaultReapInterval)
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		Addr:         addr,
		RoomTimeout:  roomTimeout,
		ReapInterval: reapInterval,
	}, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
