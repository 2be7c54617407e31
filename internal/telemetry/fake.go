package telemetry

import (
	"sync"

	"controlling_fermenter/internal/models"
)

// FakePublisher records published telemetry for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Statuses contains every run snapshot passed to PublishStatus.
	Statuses []models.Run

	// Readings contains every batch passed to PublishReadings.
	Readings [][]models.Reading

	// PublishError, if set, is returned by both publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishStatus(run models.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, run)
	return nil
}

func (f *FakePublisher) PublishReadings(readings []models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Readings = append(f.Readings, append([]models.Reading(nil), readings...))
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// StatusCount returns the number of status messages recorded.
func (f *FakePublisher) StatusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Statuses)
}

// LastStatus returns the most recent status, if any.
func (f *FakePublisher) LastStatus() (models.Run, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Statuses) == 0 {
		return models.Run{}, false
	}
	return f.Statuses[len(f.Statuses)-1], true
}
