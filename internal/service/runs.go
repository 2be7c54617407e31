package service

import (
	"context"
	"errors"
	"fmt"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/repository"
)

const (
	defaultRunListLimit = 50
	maxRunListLimit     = 500
)

type RunsService struct {
	runRepo     repository.RunRepo
	readingRepo repository.ReadingRepo
}

func NewRunsService(runRepo repository.RunRepo, readingRepo repository.ReadingRepo) *RunsService {
	return &RunsService{runRepo: runRepo, readingRepo: readingRepo}
}

// ListRuns returns stored runs newest first.
func (s *RunsService) ListRuns(ctx context.Context, f RunFilter) ([]models.Run, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultRunListLimit
	case limit > maxRunListLimit:
		limit = maxRunListLimit
	}
	return s.runRepo.List(ctx, f.Status, limit)
}

// GetRun returns one stored run.
func (s *RunsService) GetRun(ctx context.Context, id int64) (models.Run, error) {
	run, err := s.runRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
		}
		return models.Run{}, err
	}
	return run, nil
}

// ListReadings returns the readings of a run within an optional time range.
func (s *RunsService) ListReadings(ctx context.Context, f ReadingFilter) ([]models.Reading, error) {
	from := utcOrZero(f.From)
	to := utcOrZero(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	if _, err := s.GetRun(ctx, f.RunID); err != nil {
		return nil, err
	}
	return s.readingRepo.List(ctx, repository.ReadingFilter{
		RunID:    f.RunID,
		SensorID: f.SensorID,
		From:     from,
		To:       to,
		Limit:    f.Limit,
	})
}
