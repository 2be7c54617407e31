package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"controlling_fermenter/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun_SetsGauges(t *testing.T) {
	m := New()
	run := models.Run{
		Mode:         models.ModeGradual,
		Status:       models.RunActive,
		State:        models.StateHolding,
		CurrentLevel: 1,
		HeaterOn:     true,
		Levels:       []models.Level{{TargetTempC: 20, DurationSec: 60}, {TargetTempC: 25, DurationSec: 60}},
	}
	m.ObserveRun(run)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.heaterOn))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.target))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.level))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("HOLDING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("HEATING")))

	run.Status = models.RunCompleted
	run.State = models.StateCompleted
	run.HeaterOn = false
	m.ObserveRun(run)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.heaterOn))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.target))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("COMPLETED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("HOLDING")))
}

func TestObserveReadings_TemperatureAndFaults(t *testing.T) {
	m := New()
	v := 21.5
	m.ObserveReadings([]models.Reading{
		{SensorID: "28-a", TempC: &v},
		{SensorID: "28-b", Fault: "crc mismatch"},
		{SensorID: "28-b", Fault: "crc mismatch"},
	})

	assert.Equal(t, 21.5, testutil.ToFloat64(m.temperature.WithLabelValues("28-a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sensorFaults.WithLabelValues("28-b")))
}

func TestCounters_AndNilSafety(t *testing.T) {
	m := New()
	m.ObserveEvent(models.Event{Type: models.EventStart})
	m.ObserveEvent(models.Event{Type: models.EventStart})
	m.ReadingDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("START")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.readingsDropped))

	var none *Metrics
	assert.NotPanics(t, func() {
		none.ObserveRun(models.Run{})
		none.ObserveReadings(nil)
		none.ObserveEvent(models.Event{})
		none.ReadingDropped()
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.ReadingDropped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "fermenter_readings_dropped_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
