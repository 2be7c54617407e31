//go:build !linux

package relay

import (
	"context"
	"errors"
)

// GPIO is not available on non-Linux platforms.
type GPIO struct{}

// NewGPIO returns an error on non-Linux platforms.
func NewGPIO(chipName string, line int, activeLow bool) (*GPIO, error) {
	return nil, errors.New("relay: gpio not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (g *GPIO) Set(ctx context.Context, on bool) error {
	return errors.New("relay: gpio not supported")
}

// Close is not implemented on non-Linux platforms.
func (g *GPIO) Close() error {
	return nil
}
