package models

import "time"

// Mode selects how a run drives the heater.
type Mode string

const (
	ModeIdle     Mode = "IDLE"     // measure and log only
	ModeConstant Mode = "CONSTANT" // one level
	ModeGradual  Mode = "GRADUAL"  // 1..5 ordered levels
)

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunActive    RunStatus = "ACTIVE"
	RunCompleted RunStatus = "COMPLETED"
	RunAborted   RunStatus = "ABORTED"
)

// ControlState is the state of the control loop for the active run.
type ControlState string

const (
	StateIdle      ControlState = "IDLE"
	StateHeating   ControlState = "HEATING"
	StateHolding   ControlState = "HOLDING"
	StateCompleted ControlState = "COMPLETED"
	StateAborted   ControlState = "ABORTED"
)

// Level is one (target, duration) pair of a profile.
// DurationSec == 0 is only legal on the last level and means "hold until stopped".
type Level struct {
	TargetTempC float64 `json:"target_temp_c" yaml:"target_temp_c"`
	DurationSec int     `json:"duration_sec" yaml:"duration_sec"`
}

// RunDefinition is what a user submits to start a run.
type RunDefinition struct {
	Name   string  `json:"name" yaml:"name"`
	Mode   Mode    `json:"mode" yaml:"mode"`
	Levels []Level `json:"levels,omitempty" yaml:"levels"`
}

// Run is one fermentation/mash session and its progress.
type Run struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Mode              Mode         `json:"mode"`
	Levels            []Level      `json:"levels,omitempty"`
	Status            RunStatus    `json:"status"`
	State             ControlState `json:"state,omitempty"`
	CurrentLevel      int          `json:"current_level"`
	HeaterOn          bool         `json:"heater_on"`
	HeaterChangedAt   time.Time    `json:"heater_changed_at,omitempty"`
	CurrentTempC      *float64     `json:"current_temp_c,omitempty"` // control sensor, nil until first good read
	ConsecutiveFaults int          `json:"consecutive_faults,omitempty"`
	Reason            string       `json:"reason,omitempty"` // abort reason or latest alert
	StartedAt         time.Time    `json:"started_at,omitempty"`
	LevelStartedAt    time.Time    `json:"level_started_at,omitempty"` // hold start of the current level
	EndedAt           time.Time    `json:"ended_at,omitempty"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Terminal reports whether the run can no longer change.
func (r Run) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunAborted
}

// Target returns the target of the current level, if any.
func (r Run) Target() (float64, bool) {
	if r.CurrentLevel < 0 || r.CurrentLevel >= len(r.Levels) {
		return 0, false
	}
	return r.Levels[r.CurrentLevel].TargetTempC, true
}

// RemainingSeconds is the time left on the current hold, or 0 when not holding.
func (r Run) RemainingSeconds(now time.Time) int {
	if r.State != StateHolding || r.LevelStartedAt.IsZero() {
		return 0
	}
	if r.CurrentLevel >= len(r.Levels) {
		return 0
	}
	left := r.Levels[r.CurrentLevel].DurationSec - int(now.Sub(r.LevelStartedAt).Seconds())
	if left < 0 {
		return 0
	}
	return left
}
