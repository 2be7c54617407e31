package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"controlling_fermenter/internal/control"
	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"
	"controlling_fermenter/internal/repository"

	"github.com/google/uuid"
)

// Run control errors. ErrRunActive and ErrNoActiveRun are the loop's own
// sentinels so errors.Is matches at either layer.
var (
	ErrRunActive    = control.ErrRunActive
	ErrNoActiveRun  = control.ErrNoActiveRun
	ErrRunNameTaken = errors.New("run name already used")
	ErrRunNotFound  = errors.New("run not found")
)

// RunLoop is the part of the control loop the services drive.
type RunLoop interface {
	Start(run models.Run, p *profile.Profile) error
	Stop(reason string) error
	Abort(reason string) error
	Status() (models.Run, bool)
}

type ControllerService struct {
	loop    RunLoop
	runRepo repository.RunRepo
	limits  profile.Limits
	now     func() time.Time

	// serializes Start so the name check and the insert are not interleaved
	mu sync.Mutex
}

func NewControllerService(loop RunLoop, runRepo repository.RunRepo, limits profile.Limits) *ControllerService {
	return &ControllerService{loop: loop, runRepo: runRepo, limits: limits, now: time.Now}
}

// Start validates def, stores the run as PENDING and hands it to the loop.
// The loop activates it at its next tick.
func (s *ControllerService) Start(ctx context.Context, def models.RunDefinition) (models.Run, error) {
	p, err := profile.New(def, s.limits)
	if err != nil {
		return models.Run{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.loop.Status(); ok && cur.Status == models.RunActive {
		return models.Run{}, ErrRunActive
	}

	now := s.now().UTC()
	name := p.Name()
	if name == "" {
		// same-second idle starts must not collide
		name = fmt.Sprintf("idle-%d-%s", now.Unix(), uuid.NewString()[:8])
	}

	switch _, err := s.runRepo.GetByName(ctx, name); {
	case err == nil:
		return models.Run{}, fmt.Errorf("%w: %q", ErrRunNameTaken, name)
	case !errors.Is(err, repository.ErrNotFound):
		return models.Run{}, err
	}

	run := models.Run{
		Name:      name,
		Mode:      p.Mode(),
		Levels:    p.Levels(),
		Status:    models.RunPending,
		UpdatedAt: now,
	}
	id, err := s.runRepo.Create(ctx, run)
	if err != nil {
		return models.Run{}, err
	}
	run.ID = id

	if err := s.loop.Start(run, p); err != nil {
		run.Status = models.RunAborted
		run.State = models.StateAborted
		run.Reason = "not started: " + err.Error()
		run.EndedAt = now
		if uerr := s.runRepo.Update(ctx, run); uerr != nil {
			return models.Run{}, errors.Join(err, uerr)
		}
		return models.Run{}, err
	}
	return run, nil
}

// Stop ends the active run. It ends ABORTED with a STOP event.
func (s *ControllerService) Stop(ctx context.Context) error {
	return s.loop.Stop("stopped by user")
}

// Abort ends the active run with an ABORT event.
func (s *ControllerService) Abort(ctx context.Context, reason string) error {
	return s.loop.Abort(reason)
}

// Status returns the latest run snapshot published by the loop.
func (s *ControllerService) Status(ctx context.Context) (models.Run, error) {
	run, ok := s.loop.Status()
	if !ok {
		return models.Run{}, ErrNoActiveRun
	}
	return run, nil
}
