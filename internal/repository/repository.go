package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"controlling_fermenter/internal/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RunRepo stores runs and their progress.
type RunRepo interface {
	Create(ctx context.Context, run models.Run) (int64, error)
	Update(ctx context.Context, run models.Run) error
	Get(ctx context.Context, id int64) (models.Run, error)
	GetByName(ctx context.Context, name string) (models.Run, error)
	List(ctx context.Context, status models.RunStatus, limit int) ([]models.Run, error)
	// AbortUnfinished closes runs a previous process left PENDING or ACTIVE.
	AbortUnfinished(ctx context.Context, reason string, at time.Time) (int64, error)
}

type ReadingFilter struct {
	RunID    int64
	SensorID string
	From, To time.Time
	Limit    int
}

// ReadingRepo is the backing store of the log sink.
type ReadingRepo interface {
	Append(ctx context.Context, r models.Reading) error
	List(ctx context.Context, f ReadingFilter) ([]models.Reading, error)
	DeleteByRun(ctx context.Context, runID int64) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventFilter narrows an event listing. Zero fields do not filter.
type EventFilter struct {
	RunID    int64
	Type     string
	From, To time.Time
	Limit    int
}

type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, f EventFilter) ([]models.Event, error)
}

type Repository struct {
	RunRepo     RunRepo
	ReadingRepo ReadingRepo
	EventRepo   EventRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		RunRepo:     NewRunSQLite(db),
		ReadingRepo: NewReadingSQLite(db),
		EventRepo:   NewEventSQLite(db),
		Auth:        NewUserRepository(db),
	}
}
