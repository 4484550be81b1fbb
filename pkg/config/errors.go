// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrMissingTransportAddr is returned when the transport address is not set
	ErrMissingTransportAddr = errors.New("transport address is required")

	// ErrInvalidHandshakeTimeout is returned when the handshake timeout is invalid
	ErrInvalidHandshakeTimeout = errors.New("handshake timeout must be greater than 0")

	// ErrInvalidReadyMode is returned when the default ready mode is not recognized
	ErrInvalidReadyMode = errors.New("default ready mode must be \"limited\" or \"unlimited\"")

	// ErrInvalidAllocLimit is returned when ready mode is limited but alloc limit isn't positive
	ErrInvalidAllocLimit = errors.New("alloc limit must be greater than 0 when ready mode is limited")

	// ErrMissingEventLogDSN is returned when the event log DSN is not set
	ErrMissingEventLogDSN = errors.New("event log DSN is required")
)
