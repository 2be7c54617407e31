package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"controlling_fermenter/internal/models"
)

// maxStoredLevels is the number of target/duration column pairs in runs.
const maxStoredLevels = 5

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite {
	return &RunSQLite{db: db}
}

var _ RunRepo = (*RunSQLite)(nil)

const (
	runColumns = `id, name, mode,
		target1, duration1, target2, duration2, target3, duration3, target4, duration4, target5, duration5,
		status, state, current_level, heater_on, last_temp_c, reason,
		started_at, level_started_at, ended_at, updated_at`

	insertRunSQL = `
		INSERT INTO runs (name, mode,
			target1, duration1, target2, duration2, target3, duration3, target4, duration4, target5, duration5,
			status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateRunSQL = `
		UPDATE runs SET
			status=?, state=?, current_level=?, heater_on=?, last_temp_c=?, reason=?,
			started_at=?, level_started_at=?, ended_at=?, updated_at=?
		WHERE id=?
	`

	selectRunByIDSQL   = `SELECT ` + runColumns + ` FROM runs WHERE id=?`
	selectRunByNameSQL = `SELECT ` + runColumns + ` FROM runs WHERE name=?`

	abortUnfinishedSQL = `
		UPDATE runs SET status=?, state=?, heater_on=0, reason=?, ended_at=?, updated_at=?
		WHERE status IN (?, ?)
	`
)

// Create inserts a new run row and returns its id. Progress fields are
// written later through Update.
func (r *RunSQLite) Create(ctx context.Context, run models.Run) (int64, error) {
	if len(run.Levels) > maxStoredLevels {
		return 0, fmt.Errorf("insert run %q: %d levels exceed %d", run.Name, len(run.Levels), maxStoredLevels)
	}
	status := run.Status
	if status == "" {
		status = models.RunPending
	}

	args := make([]any, 0, 14)
	args = append(args, run.Name, string(run.Mode))
	args = append(args, levelArgs(run.Levels)...)
	args = append(args, string(status), utcOrNow(run.UpdatedAt))

	res, err := r.db.ExecContext(ctx, insertRunSQL, args...)
	if err != nil {
		return 0, fmt.Errorf("insert run %q: %w", run.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for run %q: %w", run.Name, err)
	}
	return id, nil
}

// Update persists the progress of a run.
func (r *RunSQLite) Update(ctx context.Context, run models.Run) error {
	res, err := r.db.ExecContext(ctx, updateRunSQL,
		string(run.Status),
		nullString(string(run.State)),
		run.CurrentLevel,
		run.HeaterOn,
		nullFloat(run.CurrentTempC),
		nullString(run.Reason),
		nullTime(run.StartedAt),
		nullTime(run.LevelStartedAt),
		nullTime(run.EndedAt),
		utcOrNow(run.UpdatedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update run %d: %w", run.ID, ErrNotFound)
	}
	return nil
}

// Get fetches a run by id.
func (r *RunSQLite) Get(ctx context.Context, id int64) (models.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, selectRunByIDSQL, id))
	if err != nil {
		return models.Run{}, fmt.Errorf("select run %d: %w", id, err)
	}
	return run, nil
}

// GetByName fetches a run by its unique name.
func (r *RunSQLite) GetByName(ctx context.Context, name string) (models.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, selectRunByNameSQL, name))
	if err != nil {
		return models.Run{}, fmt.Errorf("select run %q: %w", name, err)
	}
	return run, nil
}

// List returns runs newest first, optionally filtered by status.
func (r *RunSQLite) List(ctx context.Context, status models.RunStatus, limit int) ([]models.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, string(status))
	}
	q += " ORDER BY id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.Run, 0, 16)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// AbortUnfinished marks every PENDING or ACTIVE run as ABORTED.
func (r *RunSQLite) AbortUnfinished(ctx context.Context, reason string, at time.Time) (int64, error) {
	at = utcOrNow(at)
	res, err := r.db.ExecContext(ctx, abortUnfinishedSQL,
		string(models.RunAborted), string(models.StateAborted), reason, at, at,
		string(models.RunPending), string(models.RunActive),
	)
	if err != nil {
		return 0, fmt.Errorf("abort unfinished runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (models.Run, error) {
	var (
		run                          models.Run
		mode, status                 string
		state, reason                sql.NullString
		targets                      [maxStoredLevels]sql.NullFloat64
		durations                    [maxStoredLevels]sql.NullInt64
		lastTemp                     sql.NullFloat64
		started, levelStarted, ended sql.NullTime
	)
	dest := []any{&run.ID, &run.Name, &mode}
	for i := 0; i < maxStoredLevels; i++ {
		dest = append(dest, &targets[i], &durations[i])
	}
	dest = append(dest, &status, &state, &run.CurrentLevel, &run.HeaterOn, &lastTemp, &reason,
		&started, &levelStarted, &ended, &run.UpdatedAt)

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Run{}, ErrNotFound
		}
		return models.Run{}, err
	}

	run.Mode = models.Mode(mode)
	run.Status = models.RunStatus(status)
	run.State = models.ControlState(state.String)
	run.Reason = reason.String
	for i := 0; i < maxStoredLevels; i++ {
		if !targets[i].Valid {
			break
		}
		run.Levels = append(run.Levels, models.Level{
			TargetTempC: targets[i].Float64,
			DurationSec: int(durations[i].Int64),
		})
	}
	if lastTemp.Valid {
		v := lastTemp.Float64
		run.CurrentTempC = &v
	}
	run.StartedAt = utcIfValid(started)
	run.LevelStartedAt = utcIfValid(levelStarted)
	run.EndedAt = utcIfValid(ended)
	run.UpdatedAt = run.UpdatedAt.UTC()
	return run, nil
}

// levelArgs flattens levels into the target/duration column pairs.
func levelArgs(levels []models.Level) []any {
	args := make([]any, 0, 2*maxStoredLevels)
	for i := 0; i < maxStoredLevels; i++ {
		if i < len(levels) {
			args = append(args, levels[i].TargetTempC, levels[i].DurationSec)
			continue
		}
		args = append(args, nil, nil)
	}
	return args
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func utcIfValid(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
