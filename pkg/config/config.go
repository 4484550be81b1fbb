// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package config holds runtime configuration for the allocation core.
package config

import (
	"os"
	"strconv"
	"time"
)

// ReadyMode mirrors the sched-ready mode field (spec.md §6): a scheduler
// announces itself as either limited (drip-fed alloc_limit jobs at a time)
// or unlimited.
type ReadyMode string

const (
	ReadyModeUnlimited ReadyMode = "unlimited"
	ReadyModeLimited   ReadyMode = "limited"
)

// Config holds configuration for the allocation core daemon.
type Config struct {
	// TransportAddr is the websocket listen/dial address for the scheduler
	// message transport.
	TransportAddr string

	// HandshakeTimeout bounds how long an accepted connection has to
	// deliver its first frame after the websocket upgrade, and how long
	// an outbound dial may take.
	HandshakeTimeout time.Duration

	// DefaultReadyMode is used until a scheduler sends sched-ready.
	DefaultReadyMode ReadyMode

	// DefaultAllocLimit is the alloc_limit assumed when DefaultReadyMode is
	// ReadyModeLimited and sched-ready has not yet been received.
	DefaultAllocLimit int

	// EventLogDSN is the data source name for the event log's sqlite
	// database, e.g. "file:/var/lib/allocd/events.db".
	EventLogDSN string

	// LogLevel and LogFormat configure pkg/logging.
	LogLevel  string
	LogFormat string

	// Debug holds the ALLOCD_DEBUG setting. Nothing in the daemon reads
	// it; dispatcher logging is the same whether it is set or not.
	Debug bool
}

// NewDefault creates a new configuration with default values.
func NewDefault() *Config {
	return &Config{
		TransportAddr:     getEnvOrDefault("ALLOCD_TRANSPORT_ADDR", "ws://localhost:8202/sched"),
		HandshakeTimeout:  10 * time.Second,
		DefaultReadyMode:  ReadyModeUnlimited,
		DefaultAllocLimit: 0,
		EventLogDSN:       getEnvOrDefault("ALLOCD_EVENTLOG_DSN", "file:allocd-events.db?cache=shared"),
		LogLevel:          getEnvOrDefault("ALLOCD_LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("ALLOCD_LOG_FORMAT", "text"),
		Debug:             getEnvBoolOrDefault("ALLOCD_DEBUG", false),
	}
}

// Load loads configuration overrides from environment variables.
func (c *Config) Load() {
	if addr := os.Getenv("ALLOCD_TRANSPORT_ADDR"); addr != "" {
		c.TransportAddr = addr
	}

	if timeout := os.Getenv("ALLOCD_HANDSHAKE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.HandshakeTimeout = d
		}
	}

	if mode := os.Getenv("ALLOCD_READY_MODE"); mode != "" {
		c.DefaultReadyMode = ReadyMode(mode)
	}

	if limit := os.Getenv("ALLOCD_ALLOC_LIMIT"); limit != "" {
		if i, err := strconv.Atoi(limit); err == nil {
			c.DefaultAllocLimit = i
		}
	}

	if dsn := os.Getenv("ALLOCD_EVENTLOG_DSN"); dsn != "" {
		c.EventLogDSN = dsn
	}

	if level := os.Getenv("ALLOCD_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if format := os.Getenv("ALLOCD_LOG_FORMAT"); format != "" {
		c.LogFormat = format
	}

	c.Debug = getEnvBoolOrDefault("ALLOCD_DEBUG", c.Debug)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.TransportAddr == "" {
		return ErrMissingTransportAddr
	}

	if c.HandshakeTimeout <= 0 {
		return ErrInvalidHandshakeTimeout
	}

	switch c.DefaultReadyMode {
	case ReadyModeUnlimited, ReadyModeLimited:
	default:
		return ErrInvalidReadyMode
	}

	if c.DefaultReadyMode == ReadyModeLimited && c.DefaultAllocLimit <= 0 {
		return ErrInvalidAllocLimit
	}

	if c.EventLogDSN == "" {
		return ErrMissingEventLogDSN
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the environment variable value as a boolean or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
