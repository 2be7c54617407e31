package models

import "time"

// Event types written to the event log.
const (
	EventStart       = "START"
	EventStop        = "STOP"
	EventAbort       = "ABORT"
	EventLevelChange = "LEVEL_CHANGE"
	EventHold        = "HOLD"
	EventCompleted   = "COMPLETED"
	EventError       = "ERROR"
	EventAlert       = "ALERT"
)

// Event is a single log entry.
type Event struct {
	EventID     string    `json:"event_id"`
	RunID       int64     `json:"run_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | ABORT | LEVEL_CHANGE | HOLD | COMPLETED | ERROR | ALERT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
