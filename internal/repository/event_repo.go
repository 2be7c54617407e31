package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"controlling_fermenter/internal/models"

	"github.com/google/uuid"
)

// EventSQLite is the run event log.
type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

var _ EventRepo = (*EventSQLite)(nil)

const (
	sqliteTimestampLayout = "2006-01-02 15:04:05"

	insertEventSQL = `
		INSERT INTO events (id, run_id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectEventsSQL = `SELECT id, run_id, occurred_at, type, message, meta FROM events`
)

// Append inserts a new event. If EventID or OccurredAt are empty, they are set.
func (r *EventSQLite) Append(ctx context.Context, e models.Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var meta any
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		meta = string(b)
	}

	var runID any
	if e.RunID != 0 {
		runID = e.RunID
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		runID,
		e.OccurredAt.Format(sqliteTimestampLayout),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// List returns the events matching f, oldest first.
func (r *EventSQLite) List(ctx context.Context, f EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID > 0 {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if typ := strings.ToUpper(strings.TrimSpace(f.Type)); typ != "" {
		where = append(where, "type = ?")
		args = append(args, typ)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format(sqliteTimestampLayout))
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, f.To.UTC().Format(sqliteTimestampLayout))
	}

	q := selectEventsSQL
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY occurred_at ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]models.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (models.Event, error) {
	var (
		ev    models.Event
		runID sql.NullInt64
		meta  sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &runID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return models.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.RunID = runID.Int64
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

// decodeMeta returns the stored JSON, or the raw text when it does not parse.
func decodeMeta(meta sql.NullString) any {
	if !meta.Valid || meta.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(meta.String), &v); err != nil {
		return meta.String
	}
	return v
}
