// Package logsink decouples the control loop from the reading store. Append
// never blocks; a writer goroutine persists samples with bounded retries.
package logsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"controlling_fermenter/internal/logger"
	"controlling_fermenter/internal/models"
)

// ErrDropped is passed to the drop handler when a sample could not be stored.
var ErrDropped = errors.New("reading dropped")

// Store persists one reading.
type Store interface {
	Append(ctx context.Context, r models.Reading) error
}

// DropFunc is called once per dropped reading, from the writer goroutine or
// from Append when the buffer is full.
type DropFunc func(r models.Reading, err error)

// Config sizes the buffer and the retry loop.
type Config struct {
	Buffer       int
	MaxRetries   int
	RetryBackoff time.Duration
	// FlushTimeout bounds the final drain after the writer is canceled.
	FlushTimeout time.Duration
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Buffer:       256,
		MaxRetries:   3,
		RetryBackoff: 200 * time.Millisecond,
		FlushTimeout: 5 * time.Second,
	}
}

// Writer is the asynchronous log sink.
type Writer struct {
	store  Store
	cfg    Config
	log    *logger.Logger
	onDrop DropFunc

	ch      chan models.Reading
	done    chan struct{}
	stopped sync.Once

	written atomic.Uint64
	dropped atomic.Uint64
}

// Option customizes a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(w *Writer) { w.log = l } }

// OnDrop registers the alert hook for dropped readings.
func OnDrop(fn DropFunc) Option { return func(w *Writer) { w.onDrop = fn } }

// New builds a writer. Call Run to start persisting.
func New(store Store, cfg Config, opts ...Option) *Writer {
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}
	w := &Writer{
		store: store,
		cfg:   cfg,
		ch:    make(chan models.Reading, cfg.Buffer),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.log = logger.OrNop(w.log)
	return w
}

// Append queues r. A full buffer or a stopped writer drops the sample.
func (w *Writer) Append(r models.Reading) {
	select {
	case <-w.done:
		w.drop(r, fmt.Errorf("%w: writer stopped", ErrDropped))
		return
	default:
	}
	select {
	case w.ch <- r:
	default:
		w.drop(r, fmt.Errorf("%w: buffer full (%d)", ErrDropped, cap(w.ch)))
	}
}

// Run persists queued readings until ctx is canceled, then flushes what is
// still buffered within FlushTimeout.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopped.Do(func() { close(w.done) })
			w.flush()
			return
		case r := <-w.ch:
			w.write(ctx, r)
		}
	}
}

func (w *Writer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FlushTimeout)
	defer cancel()
	for {
		select {
		case r := <-w.ch:
			w.write(ctx, r)
		default:
			return
		}
	}
}

// write stores r, retrying MaxRetries times with a fixed backoff.
func (w *Writer) write(ctx context.Context, r models.Reading) {
	var err error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				w.drop(r, fmt.Errorf("%w: %v (canceled after %d attempts)", ErrDropped, err, attempt))
				return
			case <-time.After(w.cfg.RetryBackoff):
			}
		}
		if err = w.store.Append(ctx, r); err == nil {
			w.written.Add(1)
			return
		}
		w.log.Debugw("log_sample_retry", "run_id", r.RunID, "sensor_id", r.SensorID, "attempt", attempt+1, "err", err)
	}
	w.drop(r, fmt.Errorf("%w: %v (after %d attempts)", ErrDropped, err, w.cfg.MaxRetries+1))
}

func (w *Writer) drop(r models.Reading, err error) {
	w.dropped.Add(1)
	w.log.Warnw("log_sample_dropped", "run_id", r.RunID, "sensor_id", r.SensorID, "err", err)
	if w.onDrop != nil {
		w.onDrop(r, err)
	}
}

// Written is the number of readings stored so far.
func (w *Writer) Written() uint64 { return w.written.Load() }

// Dropped is the number of readings given up on so far.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }
