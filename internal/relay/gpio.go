//go:build linux

package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO drives the heater relay through a GPIO output line.
type GPIO struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	last *bool
}

// NewGPIO requests line on chip as an output, initially off.
// Most relay boards are low-active; activeLow inverts the physical level.
func NewGPIO(chipName string, line int, activeLow bool) (*GPIO, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := chip.RequestLine(line, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay line %d: %w", line, err)
	}

	off := false
	return &GPIO{chip: chip, line: l, last: &off}, nil
}

// Set drives the line. Repeating the last commanded state is a no-op.
func (g *GPIO) Set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last != nil && *g.last == on {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		g.last = nil // physical state unknown
		return fmt.Errorf("set relay line: %w", err)
	}
	g.last = &on
	return nil
}

// Close switches the heater off and releases the line and chip.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	if g.line != nil {
		if err := g.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch relay off: %w", err))
		}
		if err := g.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay line: %w", err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
