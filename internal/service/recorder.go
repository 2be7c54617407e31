package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"controlling_fermenter/internal/logger"
	"controlling_fermenter/internal/metrics"
	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/repository"
	"controlling_fermenter/internal/telemetry"

	"github.com/google/uuid"
)

const recorderQueueSize = 128

// RecorderConfig tunes the Recorder.
type RecorderConfig struct {
	// DiscardIdleReadings deletes an idle run's readings once it ends.
	DiscardIdleReadings bool
	// WriteTimeout bounds each repository call.
	WriteTimeout time.Duration
}

type recordJob struct {
	run   models.Run
	event *models.Event
	// readings are only published, the log sink persists them
	readings []models.Reading
}

// Recorder observes the control loop. It persists run progress and events,
// feeds metrics and publishes telemetry on its own goroutine so the loop
// never waits on the database or the broker.
type Recorder struct {
	runRepo     repository.RunRepo
	eventRepo   repository.EventRepo
	readingRepo repository.ReadingRepo
	metrics     *metrics.Metrics
	pub         telemetry.Publisher
	log         *logger.Logger
	cfg         RecorderConfig

	jobs    chan recordJob
	skipped atomic.Uint64

	// discardMu orders sink writes against marking a run discarded
	discardMu sync.RWMutex
	discarded map[int64]struct{}
}

// NewRecorder builds a Recorder. m and pub may be nil.
func NewRecorder(repos *repository.Repository, m *metrics.Metrics, pub telemetry.Publisher, log *logger.Logger, cfg RecorderConfig) *Recorder {
	if pub == nil {
		pub = telemetry.Nop{}
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Recorder{
		runRepo:     repos.RunRepo,
		eventRepo:   repos.EventRepo,
		readingRepo: repos.ReadingRepo,
		metrics:     m,
		pub:         pub,
		log:         logger.OrNop(log),
		cfg:         cfg,
		jobs:        make(chan recordJob, recorderQueueSize),
		discarded:   make(map[int64]struct{}),
	}
}

// Append stores a reading for the log sink. Readings of idle runs whose
// readings were already discarded are dropped, so a late flush cannot
// leave rows behind.
func (r *Recorder) Append(ctx context.Context, rd models.Reading) error {
	r.discardMu.RLock()
	defer r.discardMu.RUnlock()
	if _, ok := r.discarded[rd.RunID]; ok {
		return nil
	}
	return r.readingRepo.Append(ctx, rd)
}

// RunChanged queues a transition. Transitions are only dropped when the
// queue is full, which is logged.
func (r *Recorder) RunChanged(run models.Run, ev models.Event) {
	r.metrics.ObserveEvent(ev)
	r.metrics.ObserveRun(run)
	r.enqueue(recordJob{run: run, event: &ev})
}

// TickCompleted queues a progress update with the tick's readings.
func (r *Recorder) TickCompleted(run models.Run, readings []models.Reading) {
	r.metrics.ObserveRun(run)
	r.metrics.ObserveReadings(readings)
	r.enqueue(recordJob{run: run, readings: readings})
}

// ReadingDropped is the log sink's drop hook: it counts the loss and
// records an ALERT event.
func (r *Recorder) ReadingDropped(rd models.Reading, err error) {
	r.metrics.ReadingDropped()
	ev := models.Event{
		EventID:     uuid.NewString(),
		RunID:       rd.RunID,
		OccurredAt:  time.Now().UTC(),
		Type:        models.EventAlert,
		Description: fmt.Sprintf("Reading of %s dropped: %v", rd.SensorID, err),
		Metadata:    map[string]any{"sensor_id": rd.SensorID, "recorded_at": rd.RecordedAt},
	}
	r.metrics.ObserveEvent(ev)
	r.enqueue(recordJob{event: &ev})
}

func (r *Recorder) enqueue(j recordJob) {
	select {
	case r.jobs <- j:
	default:
		r.skipped.Add(1)
		r.log.Warnw("recorder_queue_full", "run_id", j.run.ID, "skipped", r.skipped.Load())
	}
}

// Run processes queued jobs until ctx is canceled, then drains the queue.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case j := <-r.jobs:
			r.handle(j)
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case j := <-r.jobs:
			r.handle(j)
		default:
			return
		}
	}
}

func (r *Recorder) handle(j recordJob) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	if j.event != nil {
		if err := r.eventRepo.Append(ctx, *j.event); err != nil {
			r.log.Errorw("event_append_failed", "run_id", j.event.RunID, "type", j.event.Type, "err", err)
		}
	}

	// alerts carry no run snapshot
	if j.run.ID == 0 {
		return
	}

	if err := r.runRepo.Update(ctx, j.run); err != nil {
		r.log.Errorw("run_update_failed", "run_id", j.run.ID, "status", j.run.Status, "err", err)
	}

	if j.event != nil {
		if err := r.pub.PublishStatus(j.run); err != nil {
			r.log.Warnw("telemetry_status_failed", "run_id", j.run.ID, "err", err)
		}
		r.discardIdle(ctx, j.run)
	}
	if len(j.readings) > 0 {
		if err := r.pub.PublishReadings(j.readings); err != nil {
			r.log.Warnw("telemetry_readings_failed", "run_id", j.run.ID, "err", err)
		}
	}
}

// discardIdle removes the readings of an idle run once it has ended.
func (r *Recorder) discardIdle(ctx context.Context, run models.Run) {
	if !r.cfg.DiscardIdleReadings || run.Mode != models.ModeIdle || !run.Terminal() {
		return
	}
	// in-flight appends finish before the mark, later ones see it
	r.discardMu.Lock()
	r.discarded[run.ID] = struct{}{}
	r.discardMu.Unlock()

	n, err := r.readingRepo.DeleteByRun(ctx, run.ID)
	if err != nil {
		r.log.Errorw("idle_readings_discard_failed", "run_id", run.ID, "err", err)
		return
	}
	r.log.Infow("idle_readings_discarded", "run_id", run.ID, "count", n)
}
