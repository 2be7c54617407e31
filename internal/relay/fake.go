package relay

import (
	"context"
	"sync"
)

// FakeActuator records every command it receives.
type FakeActuator struct {
	mu sync.Mutex

	// Commands holds every Set argument in order, including failed ones.
	Commands []bool

	// On is the last successfully applied state.
	On bool

	// SetError, if set, is returned by Set and the state is left unchanged.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeActuator creates a FakeActuator that starts off.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// Set records the command.
func (f *FakeActuator) Set(ctx context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, on)
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	return nil
}

// Close switches off and marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.On = false
	f.Closed = true
	return nil
}

// Count returns how many times Set was called with on.
func (f *FakeActuator) Count(on bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Commands {
		if c == on {
			n++
		}
	}
	return n
}

// IsOn returns the last applied state.
func (f *FakeActuator) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}

// Fail makes subsequent Set calls return err (nil clears it).
func (f *FakeActuator) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetError = err
}
