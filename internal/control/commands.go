package control

import (
	"context"
	"errors"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdAbort
)

// command is queued by the public methods and applied at the next tick boundary.
type command struct {
	kind   commandKind
	run    models.Run
	prof   *profile.Profile
	reason string
}

// Start queues a new run built from a validated profile. run carries the
// identity assigned by the store (ID, Name).
func (c *Controller) Start(run models.Run, p *profile.Profile) error {
	if p == nil {
		return errors.New("control: nil profile")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingStart || (c.hasSnapshot && c.snapshot.Status == models.RunActive) {
		return ErrRunActive
	}
	if err := c.enqueue(command{kind: cmdStart, run: run, prof: p}); err != nil {
		return err
	}
	c.pendingStart = true
	return nil
}

// Stop ends the active run at the next tick. The run ends ABORTED with a STOP event.
func (c *Controller) Stop(reason string) error {
	return c.queueEnd(cmdStop, reason)
}

// Abort ends the active run at the next tick with an ABORT event.
func (c *Controller) Abort(reason string) error {
	return c.queueEnd(cmdAbort, reason)
}

func (c *Controller) queueEnd(kind commandKind, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pendingStart && !(c.hasSnapshot && c.snapshot.Status == models.RunActive) {
		return ErrNoActiveRun
	}
	return c.enqueue(command{kind: kind, reason: reason})
}

// enqueue never blocks the caller. c.mu must be held.
func (c *Controller) enqueue(cmd command) error {
	select {
	case c.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// drainCommands applies every queued command in order.
func (c *Controller) drainCommands(ctx context.Context, now time.Time) {
	for {
		select {
		case cmd := <-c.cmds:
			c.applyCommand(ctx, now, cmd)
		default:
			return
		}
	}
}

func (c *Controller) applyCommand(ctx context.Context, now time.Time, cmd command) {
	switch cmd.kind {
	case cmdStart:
		c.begin(ctx, now, cmd.run, cmd.prof)
		// publish and clear the pending flag together so Start never sees neither
		c.mu.Lock()
		c.snapshot = c.copyRun()
		c.hasSnapshot = true
		c.pendingStart = false
		c.mu.Unlock()
		return
	case cmdStop:
		if c.run != nil && !c.run.Terminal() {
			c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventStop, withDefault(cmd.reason, "stopped by user"))
		}
	case cmdAbort:
		if c.run != nil && !c.run.Terminal() {
			c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventAbort, withDefault(cmd.reason, "aborted"))
		}
	}
	c.publish()
}

// begin activates a run. A run still active at this point is replaced.
func (c *Controller) begin(ctx context.Context, now time.Time, run models.Run, p *profile.Profile) {
	if c.run != nil && !c.run.Terminal() {
		c.finish(ctx, now, models.RunAborted, models.StateAborted, models.EventAbort, "replaced by a new run")
	}

	run.Mode = p.Mode()
	run.Levels = p.Levels()
	run.Status = models.RunActive
	run.CurrentLevel = 0
	run.StartedAt = now
	run.LevelStartedAt = time.Time{}
	run.EndedAt = time.Time{}
	run.Reason = ""
	run.CurrentTempC = nil
	run.HeaterOn = c.actuator.on
	run.UpdatedAt = now
	if p.Mode() == models.ModeIdle {
		run.State = models.StateIdle
	} else {
		run.State = models.StateHeating
	}

	c.run = &run
	c.prof = p
	c.sensorFaults = 0
	c.actuatorFaults = 0

	c.log.Infow("run_started", "run_id", run.ID, "name", run.Name, "mode", run.Mode, "levels", len(run.Levels))
	c.notify(now, models.EventStart, "Run "+run.Name+" started", map[string]any{
		"mode":   run.Mode,
		"levels": run.Levels,
	})
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
