package models

import "time"

// Reading is one sensor sample. TempC is nil when the read failed; Fault then holds the cause.
type Reading struct {
	ID         int64     `json:"id,omitempty"`
	RunID      int64     `json:"run_id"`
	SensorID   string    `json:"sensor_id"`
	TempC      *float64  `json:"temp_c,omitempty"`
	Fault      string    `json:"fault,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IsFault reports whether the reading carries a fault marker instead of a value.
func (r Reading) IsFault() bool {
	return r.TempC == nil
}
