package service

import (
	"context"
	"errors"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/repository"
)

// Status is the controller snapshot served to the API and the websocket stream.
type Status struct {
	Run          *models.Run `json:"run"`
	Active       bool        `json:"active"`
	HeaterOn     bool        `json:"heater_on"`
	TargetC      *float64    `json:"target_c,omitempty"`
	RemainingSec int         `json:"remaining_sec"`
	At           time.Time   `json:"at"`
}

type MonitoringService struct {
	loop    RunLoop
	runRepo repository.RunRepo
	now     func() time.Time
}

func NewMonitoringService(loop RunLoop, runRepo repository.RunRepo) *MonitoringService {
	return &MonitoringService{loop: loop, runRepo: runRepo, now: time.Now}
}

// GetStatus returns the live run if the loop has one, otherwise the most
// recent stored run. With nothing stored, Run is nil and the heater reads off.
func (s *MonitoringService) GetStatus(ctx context.Context) (Status, error) {
	now := s.now().UTC()
	st := Status{At: now}

	run, ok := s.loop.Status()
	if !ok {
		latest, err := s.latestStored(ctx)
		if err != nil {
			return Status{}, err
		}
		if latest == nil {
			return st, nil
		}
		run = *latest
	}

	st.Run = &run
	st.Active = run.Status == models.RunActive
	st.HeaterOn = run.HeaterOn
	st.RemainingSec = run.RemainingSeconds(now)
	if t, ok := run.Target(); ok && st.Active {
		st.TargetC = &t
	}
	return st, nil
}

func (s *MonitoringService) latestStored(ctx context.Context) (*models.Run, error) {
	runs, err := s.runRepo.List(ctx, "", 1)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
