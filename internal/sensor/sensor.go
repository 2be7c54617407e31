// Package sensor reads temperature probes.
// The W1 implementation reads DS18B20 probes from the Linux 1-wire sysfs tree.
// The fake implementation allows testing without hardware.
package sensor

import (
	"context"
	"errors"
)

// Reader reads one probe and returns its calibrated temperature in °C.
type Reader interface {
	Read(ctx context.Context, sensorID string) (float64, error)
}

// Probe errors. Every failure of a Reader should wrap one of these.
var (
	ErrNotFound    = errors.New("sensor: probe not found")
	ErrCRC         = errors.New("sensor: crc check failed")
	ErrMalformed   = errors.New("sensor: malformed reading")
	ErrImplausible = errors.New("sensor: implausible value")
)

// Calibration is a per-probe additive offset in °C.
type Calibration map[string]float64

// Apply returns v corrected for the probe's offset.
func (c Calibration) Apply(sensorID string, v float64) float64 {
	return v + c[sensorID]
}
