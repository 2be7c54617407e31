package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"controlling_fermenter/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `
		INSERT INTO readings (run_id, sensor_id, temperature, fault, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`

	deleteReadingsByRunSQL   = `DELETE FROM readings WHERE run_id = ?`
	deleteReadingsBeforeSQL  = `DELETE FROM readings WHERE recorded_at < ?`
	defaultReadingsListLimit = 10000
)

// Append inserts one reading. A nil temperature is stored as NULL with the fault text.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) error {
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		rd.RunID,
		rd.SensorID,
		nullFloat(rd.TempC),
		nullString(rd.Fault),
		utcOrNow(rd.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reading run=%d sensor=%s: %w", rd.RunID, rd.SensorID, err)
	}
	return nil
}

// List returns readings matching f ordered by time ascending.
func (r *ReadingSQLite) List(ctx context.Context, f ReadingFilter) ([]models.Reading, error) {
	var (
		conds []string
		args  []any
	)
	if f.RunID != 0 {
		conds = append(conds, "run_id = ?")
		args = append(args, f.RunID)
	}
	if s := strings.TrimSpace(f.SensorID); s != "" {
		conds = append(conds, "sensor_id = ?")
		args = append(args, s)
	}
	if !f.From.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, f.To.UTC())
	}

	q := `SELECT id, run_id, sensor_id, temperature, fault, recorded_at FROM readings`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC, id ASC LIMIT ?"
	limit := f.Limit
	if limit <= 0 {
		limit = defaultReadingsListLimit
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		var (
			rd    models.Reading
			temp  sql.NullFloat64
			fault sql.NullString
		)
		if err := rows.Scan(&rd.ID, &rd.RunID, &rd.SensorID, &temp, &fault, &rd.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if temp.Valid {
			v := temp.Float64
			rd.TempC = &v
		}
		rd.Fault = fault.String
		rd.RecordedAt = rd.RecordedAt.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return out, nil
}

// DeleteByRun removes every reading of a run.
func (r *ReadingSQLite) DeleteByRun(ctx context.Context, runID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteReadingsByRunSQL, runID)
	if err != nil {
		return 0, fmt.Errorf("delete readings of run %d: %w", runID, err)
	}
	return res.RowsAffected()
}

// DeleteOlderThan removes readings recorded before cutoff.
func (r *ReadingSQLite) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteReadingsBeforeSQL, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete readings before %s: %w", cutoff.UTC().Format(time.RFC3339), err)
	}
	return res.RowsAffected()
}
