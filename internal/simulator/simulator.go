// Package simulator provides a simulated kettle: a heater relay and a probe
// coupled through a simple thermal model. It lets the controller run on
// machines without 1-wire probes or a relay board.
package simulator

import (
	"context"
	"sync"
	"time"
)

// ----------- Simulation constants -----------
const (
	AmbientC         = 20.0  // ambient temperature °C
	HeatRateCPerSec  = 0.05  // °C per second with the heater on
	CoolRateCPerSec  = 0.005 // °C per second drift toward ambient with the heater off
	HeaterLagSeconds = 30.0  // heat still stored in the element after switching off
)

// Plant is a simulated kettle. It implements both sensor.Reader and relay.Actuator.
type Plant struct {
	mu       sync.Mutex
	now      func() time.Time
	tempC    float64
	heaterOn bool
	offAt    time.Time
	updated  time.Time
}

// NewPlant returns a plant at ambient temperature with the heater off.
func NewPlant() *Plant {
	return NewPlantWithClock(time.Now, AmbientC)
}

// NewPlantWithClock returns a plant starting at startC using the given clock.
func NewPlantWithClock(now func() time.Time, startC float64) *Plant {
	return &Plant{now: now, tempC: startC, updated: now()}
}

// Read advances the model and returns the current temperature for any probe id.
func (p *Plant) Read(ctx context.Context, sensorID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(p.now())
	return p.tempC, nil
}

// Set switches the simulated heater.
func (p *Plant) Set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.advance(now)
	if p.heaterOn && !on {
		p.offAt = now
	}
	p.heaterOn = on
	return nil
}

// Close switches the heater off.
func (p *Plant) Close() error {
	return p.Set(context.Background(), false)
}

// advance integrates the model from the last update to now.
func (p *Plant) advance(now time.Time) {
	elapsed := now.Sub(p.updated).Seconds()
	if elapsed <= 0 {
		return
	}
	p.updated = now

	switch {
	case p.heaterOn:
		p.tempC += HeatRateCPerSec * elapsed
	case !p.offAt.IsZero() && now.Sub(p.offAt).Seconds() < HeaterLagSeconds:
		// residual heat keeps pushing the temperature up for a while (overshoot)
		p.tempC += HeatRateCPerSec * 0.5 * elapsed
	default:
		p.tempC = driftToAmbient(p.tempC, elapsed)
	}
}

// driftToAmbient moves t toward ambient by the cooling rate without crossing it.
func driftToAmbient(t, elapsed float64) float64 {
	step := CoolRateCPerSec * elapsed
	switch {
	case t > AmbientC:
		return maxFloat(t-step, AmbientC)
	case t < AmbientC:
		return minFloat(t+step, AmbientC)
	}
	return t
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}
