package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/repository"
)

// ErrInvalidTimeRange is returned when a filter's From is after its To.
var ErrInvalidTimeRange = errors.New("invalid time range: From must be <= To")

type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns events in chronological order.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.Event, error) {
	q, err := eventQuery(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, q)
}

// eventQuery turns a LogFilter into a store query with UTC bounds and an
// upper-case type.
func eventQuery(f LogFilter) (repository.EventFilter, error) {
	q := repository.EventFilter{
		RunID: f.RunID,
		Type:  strings.ToUpper(strings.TrimSpace(f.Type)),
		From:  utcOrZero(f.From),
		To:    utcOrZero(f.To),
		Limit: f.Limit,
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return repository.EventFilter{}, ErrInvalidTimeRange
	}
	if q.RunID < 0 {
		q.RunID = 0
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return q, nil
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
