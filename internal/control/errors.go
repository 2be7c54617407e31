package control

import "errors"

var (
	// ErrSensorFault marks a failed or timed-out read of the control probe.
	ErrSensorFault = errors.New("sensor fault")
	// ErrActuatorFault marks a relay command that failed or timed out.
	ErrActuatorFault = errors.New("actuator fault")

	ErrRunActive   = errors.New("a run is already active")
	ErrNoActiveRun = errors.New("no active run")
	ErrQueueFull   = errors.New("controller command queue is full")
)
