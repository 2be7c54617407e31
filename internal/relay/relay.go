// Package relay switches the heater socket.
// The real implementation drives a Linux GPIO character-device line.
// The fake implementation allows testing without hardware.
package relay

import "context"

// Actuator switches the heater on or off.
type Actuator interface {
	// Set commands the relay. Implementations must be idempotent.
	Set(ctx context.Context, on bool) error

	// Close forces the relay off and releases resources.
	Close() error
}

// DefaultLine is the BCM line of the heater relay board.
const DefaultLine = 21
