package sensor

import (
	"context"
	"errors"
	"sync"
)

// Sample is one scripted result: a temperature or an error.
type Sample struct {
	TempC float64
	Err   error
}

// FakeReader is a test double that returns scripted samples per probe.
// Each call to Read consumes the next sample; the last one repeats.
type FakeReader struct {
	mu      sync.Mutex
	samples map[string][]Sample
	index   map[string]int

	// Calls counts reads per probe.
	Calls map[string]int
}

// NewFakeReader creates an empty FakeReader.
func NewFakeReader() *FakeReader {
	return &FakeReader{
		samples: map[string][]Sample{},
		index:   map[string]int{},
		Calls:   map[string]int{},
	}
}

// Script appends samples for a probe.
func (f *FakeReader) Script(sensorID string, samples ...Sample) *FakeReader {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[sensorID] = append(f.samples[sensorID], samples...)
	return f
}

// Temps is shorthand for scripting plain temperatures.
func (f *FakeReader) Temps(sensorID string, temps ...float64) *FakeReader {
	s := make([]Sample, len(temps))
	for i, t := range temps {
		s[i] = Sample{TempC: t}
	}
	return f.Script(sensorID, s...)
}

// Read returns the next scripted sample for sensorID.
func (f *FakeReader) Read(ctx context.Context, sensorID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[sensorID]++

	s := f.samples[sensorID]
	if len(s) == 0 {
		return 0, errors.Join(ErrNotFound, errors.New("no samples configured for "+sensorID))
	}
	i := f.index[sensorID]
	if i < len(s)-1 {
		f.index[sensorID] = i + 1
	}
	return s[i].TempC, s[i].Err
}
