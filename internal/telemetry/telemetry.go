// Package telemetry publishes run status and readings over MQTT.
package telemetry

import (
	"encoding/json"
	"strings"
	"time"

	"controlling_fermenter/internal/models"
)

// Topic suffixes under the configured prefix.
const (
	TopicStatus   = "status"
	TopicReadings = "readings"
)

// Publisher sends controller telemetry. Errors are reported, never fatal.
type Publisher interface {
	// PublishStatus sends a retained run snapshot.
	PublishStatus(run models.Run) error
	// PublishReadings sends the readings of one tick.
	PublishReadings(readings []models.Reading) error
	Close() error
}

// Topic joins prefix and suffix with a single slash.
func Topic(prefix, suffix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// StatusPayload is the JSON body of the status topic.
type StatusPayload struct {
	Timestamp    string   `json:"timestamp"`
	RunID        int64    `json:"run_id"`
	Name         string   `json:"name"`
	Mode         string   `json:"mode"`
	Status       string   `json:"status"`
	State        string   `json:"state"`
	Level        int      `json:"level"`
	Levels       int      `json:"levels"`
	TargetC      *float64 `json:"target_c,omitempty"`
	TempC        *float64 `json:"temp_c,omitempty"`
	HeaterOn     bool     `json:"heater_on"`
	RemainingSec int      `json:"remaining_sec"`
	Reason       string   `json:"reason,omitempty"`
}

// ReadingPayload is one entry of the readings topic.
type ReadingPayload struct {
	Timestamp string   `json:"timestamp"`
	RunID     int64    `json:"run_id"`
	Sensor    string   `json:"sensor"`
	TempC     *float64 `json:"temp_c"`
	Fault     string   `json:"fault,omitempty"`
}

// FormatStatusPayload builds the status JSON for run as of now.
func FormatStatusPayload(run models.Run, now time.Time) ([]byte, error) {
	p := StatusPayload{
		Timestamp:    now.UTC().Format(time.RFC3339),
		RunID:        run.ID,
		Name:         run.Name,
		Mode:         string(run.Mode),
		Status:       string(run.Status),
		State:        string(run.State),
		Levels:       len(run.Levels),
		TempC:        run.CurrentTempC,
		HeaterOn:     run.HeaterOn,
		RemainingSec: run.RemainingSeconds(now),
		Reason:       run.Reason,
	}
	if t, ok := run.Target(); ok {
		p.TargetC = &t
		p.Level = run.CurrentLevel + 1
	}
	return json.Marshal(p)
}

// FormatReadingsPayload builds the readings JSON array.
func FormatReadingsPayload(readings []models.Reading) ([]byte, error) {
	out := make([]ReadingPayload, 0, len(readings))
	for _, r := range readings {
		out = append(out, ReadingPayload{
			Timestamp: r.RecordedAt.UTC().Format(time.RFC3339),
			RunID:     r.RunID,
			Sensor:    r.SensorID,
			TempC:     r.TempC,
			Fault:     r.Fault,
		})
	}
	return json.Marshal(out)
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

func (Nop) PublishStatus(models.Run) error         { return nil }
func (Nop) PublishReadings([]models.Reading) error { return nil }
func (Nop) Close() error                           { return nil }
