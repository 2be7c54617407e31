// Package control is the temperature control loop: a single goroutine that
// reads the probes every tick, moves the active run through its levels and
// switches the heater with a hysteresis band.
package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"controlling_fermenter/internal/logger"
	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"
	"controlling_fermenter/internal/relay"
	"controlling_fermenter/internal/sensor"

	"github.com/google/uuid"
)

// Sink receives one reading per probe per tick. Append must not block.
type Sink interface {
	Append(r models.Reading)
}

// Listener observes the loop. It is called from the control goroutine and
// must return quickly.
type Listener interface {
	// RunChanged is called on every run transition with the event describing it.
	RunChanged(run models.Run, ev models.Event)
	// TickCompleted is called at the end of every tick that had an active run.
	TickCompleted(run models.Run, readings []models.Reading)
}

// Config tunes the loop.
type Config struct {
	// Sensors lists the probes to read; the first one drives control.
	Sensors []string
	// Band is the full width of the hysteresis deadband in °C. Must be > 0.
	Band float64
	// MaxSensorFaults consecutive control probe faults abort the run.
	MaxSensorFaults int
	// MaxActuatorFaults consecutive failed relay commands abort the run.
	MaxActuatorFaults int
	// IOTimeout bounds every probe read and relay command.
	IOTimeout time.Duration
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Band:              0.4,
		MaxSensorFaults:   5,
		MaxActuatorFaults: 3,
		IOTimeout:         3 * time.Second,
	}
}

// Validate rejects configurations the loop cannot run safely with.
func (c Config) Validate() error {
	switch {
	case len(c.Sensors) == 0:
		return fmt.Errorf("control: at least one sensor is required")
	case c.Band <= 0:
		return fmt.Errorf("control: band must be > 0, got %v", c.Band)
	case c.MaxSensorFaults < 1:
		return fmt.Errorf("control: max sensor faults must be >= 1, got %d", c.MaxSensorFaults)
	case c.MaxActuatorFaults < 1:
		return fmt.Errorf("control: max actuator faults must be >= 1, got %d", c.MaxActuatorFaults)
	case c.IOTimeout <= 0:
		return fmt.Errorf("control: io timeout must be > 0, got %v", c.IOTimeout)
	}
	return nil
}

type actuatorState struct {
	on        bool
	changedAt time.Time
	// uncertain is set after a failed command: the physical relay state is unknown.
	uncertain bool
}

// Controller owns the active run and the heater state.
// Only the control goroutine (Tick/Run) touches run, prof and actuator.
type Controller struct {
	cfg      Config
	probes   sensor.Reader
	heater   relay.Actuator
	sink     Sink
	listener Listener
	log      *logger.Logger
	now      func() time.Time

	cmds chan command

	run            *models.Run
	prof           *profile.Profile
	actuator       actuatorState
	sensorFaults   int
	actuatorFaults int

	mu           sync.RWMutex
	snapshot     models.Run
	hasSnapshot  bool
	pendingStart bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithListener registers the loop observer.
func WithListener(l Listener) Option { return func(c *Controller) { c.listener = l } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(c *Controller) { c.log = l } }

// WithClock replaces time.Now for tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

const commandQueueSize = 16

// New builds a controller. The heater is assumed off until commanded.
func New(cfg Config, probes sensor.Reader, heater relay.Actuator, sink Sink, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:    cfg,
		probes: probes,
		heater: heater,
		sink:   sink,
		now:    time.Now,
		cmds:   make(chan command, commandQueueSize),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log)
	if c.listener == nil {
		c.listener = nopListener{}
	}
	return c, nil
}

// Run ticks at the given interval until ctx is canceled. The first tick runs
// immediately. On exit any active run is aborted and the heater forced off.
func (c *Controller) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()

	c.Tick(ctx, c.now())
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-t.C:
			c.Tick(ctx, c.now())
		}
	}
}

// Tick is one evaluation cycle: apply queued commands, read every probe,
// log the readings, then advance the state machine on the control probe.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	c.drainCommands(ctx, now)

	if c.run == nil || c.run.Terminal() {
		// nothing to control; make sure an uncertain or stale relay ends up off
		c.forceOff(ctx, now)
		c.publish()
		return
	}

	readings, temp, err := c.readProbes(ctx, now)
	for _, r := range readings {
		c.sink.Append(r)
	}

	if err != nil {
		c.onSensorFault(ctx, now, err)
	} else {
		c.sensorFaults = 0
		t := temp
		c.run.CurrentTempC = &t
		c.step(ctx, now, temp)
	}

	c.run.ConsecutiveFaults = c.sensorFaults
	c.run.HeaterOn = c.actuator.on
	c.run.HeaterChangedAt = c.actuator.changedAt
	c.run.UpdatedAt = now
	c.publish()
	c.listener.TickCompleted(c.copyRun(), readings)
}

// step applies the transition and action rule of the current state.
func (c *Controller) step(ctx context.Context, now time.Time, temp float64) {
	switch c.run.State {
	case models.StateIdle:
		c.command(ctx, now, false)
	case models.StateHeating:
		c.heat(ctx, now, temp)
	case models.StateHolding:
		if c.holdElapsed(now) {
			c.advance(ctx, now, temp)
			return
		}
		lvl, _ := c.prof.Level(c.run.CurrentLevel)
		c.command(ctx, now, Decide(temp, lvl.TargetTempC, c.cfg.Band, c.actuator.on, models.StateHolding))
	}
}

// heat runs the HEATING rule and enters HOLDING once the band is reached.
// The hold timer starts at this tick, not when heating began.
func (c *Controller) heat(ctx context.Context, now time.Time, temp float64) {
	lvl, _ := c.prof.Level(c.run.CurrentLevel)
	if !holdReached(temp, lvl.TargetTempC, c.cfg.Band) {
		c.command(ctx, now, Decide(temp, lvl.TargetTempC, c.cfg.Band, c.actuator.on, models.StateHeating))
		return
	}

	c.run.State = models.StateHolding
	c.run.LevelStartedAt = now
	c.log.Infow("level_hold_started", "run_id", c.run.ID, "level", c.run.CurrentLevel+1, "target_c", lvl.TargetTempC, "temp_c", temp)
	c.notify(now, models.EventHold, fmt.Sprintf("Holding level %d at %.2f°C", c.run.CurrentLevel+1, lvl.TargetTempC), map[string]any{
		"level":        c.run.CurrentLevel + 1,
		"target_c":     lvl.TargetTempC,
		"temp_c":       temp,
		"duration_sec": lvl.DurationSec,
	})
	c.command(ctx, now, Decide(temp, lvl.TargetTempC, c.cfg.Band, c.actuator.on, models.StateHolding))
}

func (c *Controller) holdElapsed(now time.Time) bool {
	lvl, _ := c.prof.Level(c.run.CurrentLevel)
	if lvl.DurationSec == 0 {
		return false // unbounded last level, held until stopped
	}
	return now.Sub(c.run.LevelStartedAt) >= time.Duration(lvl.DurationSec)*time.Second
}

// advance moves to the next level, or completes the run after the last one.
func (c *Controller) advance(ctx context.Context, now time.Time, temp float64) {
	if !c.prof.HasNext(c.run.CurrentLevel) {
		c.finish(ctx, now, models.RunCompleted, models.StateCompleted, models.EventCompleted, "all levels completed")
		return
	}

	c.run.CurrentLevel++
	c.run.State = models.StateHeating
	c.run.LevelStartedAt = time.Time{}
	lvl, _ := c.prof.Level(c.run.CurrentLevel)
	c.log.Infow("level_changed", "run_id", c.run.ID, "level", c.run.CurrentLevel+1, "target_c", lvl.TargetTempC)
	c.notify(now, models.EventLevelChange, fmt.Sprintf("Heating to level %d at %.2f°C", c.run.CurrentLevel+1, lvl.TargetTempC), map[string]any{
		"level":    c.run.CurrentLevel + 1,
		"target_c": lvl.TargetTempC,
		"temp_c":   temp,
	})
	c.heat(ctx, now, temp)
}

// onSensorFault holds the last heater command and aborts after too many faults in a row.
func (c *Controller) onSensorFault(ctx context.Context, now time.Time, err error) {
	c.sensorFaults++
	c.log.Warnw("sensor_fault", "run_id", c.run.ID, "consecutive", c.sensorFaults, "max", c.cfg.MaxSensorFaults, "err", err)
	if c.sensorFaults < c.cfg.MaxSensorFaults {
		return
	}
	c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventError,
		fmt.Sprintf("%d consecutive sensor faults: %v", c.sensorFaults, err))
}

// command issues at most one relay command, only when desired differs from
// the known heater state. Failures count toward the actuator fault limit.
func (c *Controller) command(ctx context.Context, now time.Time, desired bool) {
	if desired == c.actuator.on && !c.actuator.uncertain {
		return
	}
	if err := c.apply(ctx, now, desired); err != nil {
		c.actuatorFaults++
		c.log.Errorw("relay_command_failed", "run_id", c.run.ID, "on", desired, "consecutive", c.actuatorFaults, "err", err)
		if c.actuatorFaults >= c.cfg.MaxActuatorFaults {
			c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventError,
				fmt.Sprintf("%d consecutive relay failures: %v", c.actuatorFaults, err))
		}
		return
	}
	c.actuatorFaults = 0
}

// apply sends the command to the relay and records the result.
func (c *Controller) apply(ctx context.Context, now time.Time, on bool) error {
	_, err := withTimeout(ctx, c.cfg.IOTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.heater.Set(ctx, on)
	})
	if err != nil {
		c.actuator.uncertain = true
		return fmt.Errorf("%w: %v", ErrActuatorFault, err)
	}
	if c.actuator.on != on || c.actuator.changedAt.IsZero() {
		c.actuator.changedAt = now
	}
	c.actuator.on = on
	c.actuator.uncertain = false
	return nil
}

// forceOff switches the heater off unless it is known to be off already.
func (c *Controller) forceOff(ctx context.Context, now time.Time) {
	if !c.actuator.on && !c.actuator.uncertain {
		return
	}
	if err := c.apply(ctx, now, false); err != nil {
		c.log.Errorw("relay_force_off_failed", "err", err)
	}
}

// finish ends the run in a terminal state with the heater off.
func (c *Controller) finish(ctx context.Context, now time.Time, status models.RunStatus, state models.ControlState, evType, reason string) {
	c.forceOff(ctx, now)

	c.run.Status = status
	c.run.State = state
	c.run.Reason = reason
	c.run.EndedAt = now
	c.run.HeaterOn = c.actuator.on
	c.run.HeaterChangedAt = c.actuator.changedAt
	c.run.UpdatedAt = now

	if status == models.RunAborted {
		c.log.Warnw("run_aborted", "run_id", c.run.ID, "reason", reason)
	} else {
		c.log.Infow("run_completed", "run_id", c.run.ID, "name", c.run.Name)
	}
	c.notify(now, evType, reason, map[string]any{
		"status": status,
		"level":  c.run.CurrentLevel + 1,
	})
}

func (c *Controller) notify(now time.Time, typ, description string, meta map[string]any) {
	c.listener.RunChanged(c.copyRun(), models.Event{
		EventID:     uuid.NewString(),
		RunID:       c.run.ID,
		OccurredAt:  now.UTC(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
}

// readProbes reads every configured probe once. The returned error refers to
// the control probe only; other probes just log a fault marker.
func (c *Controller) readProbes(ctx context.Context, now time.Time) ([]models.Reading, float64, error) {
	readings := make([]models.Reading, 0, len(c.cfg.Sensors))
	var (
		controlTemp float64
		controlErr  error
	)
	for i, id := range c.cfg.Sensors {
		v, err := withTimeout(ctx, c.cfg.IOTimeout, func(ctx context.Context) (float64, error) {
			return c.probes.Read(ctx, id)
		})
		r := models.Reading{RunID: c.run.ID, SensorID: id, RecordedAt: now.UTC()}
		if err != nil {
			r.Fault = err.Error()
		} else {
			val := v
			r.TempC = &val
		}
		readings = append(readings, r)

		if i == 0 {
			controlTemp = v
			if err != nil {
				controlErr = fmt.Errorf("%w: %s: %v", ErrSensorFault, id, err)
			}
		}
	}
	return readings, controlTemp, controlErr
}

// shutdown aborts the active run and forces the heater off after ctx is canceled.
func (c *Controller) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.IOTimeout)
	defer cancel()
	now := c.now()

	c.drainCommands(ctx, now)
	if c.run != nil && !c.run.Terminal() {
		c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventAbort, "controller shut down")
	}
	c.forceOff(ctx, now)
	c.publish()
}

// publish stores a copy of the run for Status readers.
func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return
	}
	c.snapshot = c.copyRun()
	c.hasSnapshot = true
}

func (c *Controller) copyRun() models.Run {
	r := *c.run
	r.Levels = append([]models.Level(nil), c.run.Levels...)
	if c.run.CurrentTempC != nil {
		t := *c.run.CurrentTempC
		r.CurrentTempC = &t
	}
	return r
}

// Status returns the latest run snapshot; ok is false before any run started.
func (c *Controller) Status() (models.Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasSnapshot {
		return models.Run{}, false
	}
	r := c.snapshot
	r.Levels = append([]models.Level(nil), c.snapshot.Levels...)
	return r, true
}

// HeaterOn reports the last heater state published by the loop.
func (c *Controller) HeaterOn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasSnapshot && c.snapshot.HeaterOn
}

type nopListener struct{}

func (nopListener) RunChanged(models.Run, models.Event)        {}
func (nopListener) TickCompleted(models.Run, []models.Reading) {}
