package service

import (
	"context"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/profile"
	"controlling_fermenter/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Controller is the run control surface: start, stop and abort runs.
type Controller interface {
	Start(ctx context.Context, def models.RunDefinition) (models.Run, error)
	Stop(ctx context.Context) error
	Abort(ctx context.Context, reason string) error
	Status(ctx context.Context) (models.Run, error)
}

// Monitoring exposes the live controller state.
type Monitoring interface {
	GetStatus(ctx context.Context) (Status, error)
}

// Runs exposes stored runs and their readings.
type Runs interface {
	ListRuns(ctx context.Context, f RunFilter) ([]models.Run, error)
	GetRun(ctx context.Context, id int64) (models.Run, error)
	ListReadings(ctx context.Context, f ReadingFilter) ([]models.Reading, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

// Service aggregates all sub-services.
type Service struct {
	Controller
	Monitoring
	Runs
	EventLog
	Authorization
}

// Deps are the non-repository collaborators of the services.
type Deps struct {
	Loop   RunLoop
	Limits profile.Limits
	Auth   AuthConfig
}

// NewService wires the repository layer and the control loop into the services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	return &Service{
		Controller:    NewControllerService(deps.Loop, repos.RunRepo, deps.Limits),
		Monitoring:    NewMonitoringService(deps.Loop, repos.RunRepo),
		Runs:          NewRunsService(repos.RunRepo, repos.ReadingRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, deps.Auth),
	}
}

// LogFilter supports history filtering by run, time range and type.
type LogFilter struct {
	RunID int64     // zero means every run
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "START", "STOP", "ABORT", "LEVEL_CHANGE", "HOLD", "COMPLETED", "ERROR", "ALERT"
	Limit int
}

// RunFilter narrows the run list.
type RunFilter struct {
	Status models.RunStatus
	Limit  int
}

// ReadingFilter selects readings of one run.
type ReadingFilter struct {
	RunID    int64
	SensorID string
	From     time.Time
	To       time.Time
	Limit    int
}
