package logsink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"controlling_fermenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	mu       sync.Mutex
	failures int // remaining failures before success; -1 fails forever
	calls    int
	stored   []models.Reading
	block    chan struct{}
}

func (s *flakyStore) Append(ctx context.Context, r models.Reading) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return errors.New("database is locked")
	}
	s.stored = append(s.stored, r)
	return nil
}

func (s *flakyStore) snapshot() (int, []models.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]models.Reading(nil), s.stored...)
}

type drops struct {
	mu   sync.Mutex
	errs []error
}

func (d *drops) record(_ models.Reading, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

func (d *drops) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errs)
}

func fastConfig() Config {
	return Config{Buffer: 8, MaxRetries: 3, RetryBackoff: time.Millisecond, FlushTimeout: time.Second}
}

func reading(run int64, temp float64) models.Reading {
	return models.Reading{RunID: run, SensorID: "28-a", TempC: &temp, RecordedAt: time.Now().UTC()}
}

func startWriter(t *testing.T, w *Writer) (cancel func()) {
	t.Helper()
	ctx, c := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	return func() {
		c()
		<-done
	}
}

func TestWriter_PersistsInOrder(t *testing.T) {
	store := &flakyStore{}
	w := New(store, fastConfig())
	stop := startWriter(t, w)

	for i := 0; i < 5; i++ {
		w.Append(reading(1, float64(20+i)))
	}
	require.Eventually(t, func() bool { return w.Written() == 5 }, time.Second, time.Millisecond)
	stop()

	_, stored := store.snapshot()
	require.Len(t, stored, 5)
	for i, r := range stored {
		assert.Equal(t, float64(20+i), *r.TempC)
	}
	assert.Zero(t, w.Dropped())
}

func TestWriter_RetriesTransientFailures(t *testing.T) {
	store := &flakyStore{failures: 2}
	d := &drops{}
	w := New(store, fastConfig(), OnDrop(d.record))
	stop := startWriter(t, w)

	w.Append(reading(1, 21))
	require.Eventually(t, func() bool { return w.Written() == 1 }, time.Second, time.Millisecond)
	stop()

	calls, _ := store.snapshot()
	assert.Equal(t, 3, calls)
	assert.Zero(t, d.count())
}

func TestWriter_DropsAfterMaxRetries(t *testing.T) {
	store := &flakyStore{failures: -1}
	d := &drops{}
	w := New(store, fastConfig(), OnDrop(d.record))
	stop := startWriter(t, w)

	w.Append(reading(1, 21))
	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, time.Millisecond)
	stop()

	calls, stored := store.snapshot()
	assert.Equal(t, 4, calls, "one attempt plus three retries")
	assert.Empty(t, stored)
	assert.EqualValues(t, 1, w.Dropped())
	assert.ErrorIs(t, d.errs[0], ErrDropped)
}

func TestWriter_AppendNeverBlocks(t *testing.T) {
	store := &flakyStore{block: make(chan struct{})}
	d := &drops{}
	cfg := fastConfig()
	cfg.Buffer = 2
	w := New(store, cfg, OnDrop(d.record))
	stop := startWriter(t, w)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Append(reading(1, float64(i)))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Append blocked on a stalled store")
	}

	// the writer holds one reading and the buffer two; the rest are dropped
	assert.GreaterOrEqual(t, d.count(), 7)
	close(store.block)
	stop()
	assert.EqualValues(t, 10, w.Written()+w.Dropped())
}

func TestWriter_FlushesOnCancelAndDropsAfterStop(t *testing.T) {
	store := &flakyStore{}
	d := &drops{}
	w := New(store, fastConfig(), OnDrop(d.record))

	// queued before the writer runs, flushed on cancel
	w.Append(reading(1, 20))
	w.Append(reading(1, 21))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	_, stored := store.snapshot()
	assert.Len(t, stored, 2)

	w.Append(reading(1, 22))
	assert.Equal(t, 1, d.count())
}
