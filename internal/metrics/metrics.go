// Package metrics exposes the controller state to Prometheus.
package metrics

import (
	"net/http"

	"controlling_fermenter/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fermenter"

var controlStates = []models.ControlState{
	models.StateIdle,
	models.StateHeating,
	models.StateHolding,
	models.StateCompleted,
	models.StateAborted,
}

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	temperature     *prometheus.GaugeVec
	sensorFaults    *prometheus.CounterVec
	target          prometheus.Gauge
	heaterOn        prometheus.Gauge
	level           prometheus.Gauge
	state           *prometheus.GaugeVec
	events          *prometheus.CounterVec
	readingsDropped prometheus.Counter
}

// New builds and registers every collector, plus the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last good reading per sensor",
		}, []string{"sensor"}),
		sensorFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Failed or timed-out sensor reads",
		}, []string{"sensor"}),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_celsius",
			Help:      "Target of the current level, 0 when none",
		}),
		heaterOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heater_on",
			Help:      "1 while the heater relay is on",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_level",
			Help:      "1-based index of the current level, 0 when idle",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_state",
			Help:      "1 for the current control state",
		}, []string{"state"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Run events by type",
		}, []string{"type"}),
		readingsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_dropped_total",
			Help:      "Readings the log sink gave up on",
		}),
	}

	m.registry.MustRegister(
		m.temperature, m.sensorFaults, m.target, m.heaterOn, m.level, m.state, m.events, m.readingsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun updates the run gauges from a snapshot.
func (m *Metrics) ObserveRun(run models.Run) {
	if m == nil {
		return
	}
	m.heaterOn.Set(boolToFloat(run.HeaterOn))
	if t, ok := run.Target(); ok && !run.Terminal() && run.Mode != models.ModeIdle {
		m.target.Set(t)
		m.level.Set(float64(run.CurrentLevel + 1))
	} else {
		m.target.Set(0)
		m.level.Set(0)
	}
	for _, s := range controlStates {
		m.state.WithLabelValues(string(s)).Set(boolToFloat(run.State == s))
	}
}

// ObserveReadings records the readings of one tick.
func (m *Metrics) ObserveReadings(readings []models.Reading) {
	if m == nil {
		return
	}
	for _, r := range readings {
		if r.IsFault() {
			m.sensorFaults.WithLabelValues(r.SensorID).Inc()
			continue
		}
		m.temperature.WithLabelValues(r.SensorID).Set(*r.TempC)
	}
}

// ObserveEvent counts an event by type.
func (m *Metrics) ObserveEvent(ev models.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(ev.Type).Inc()
}

// ReadingDropped counts a reading lost by the log sink.
func (m *Metrics) ReadingDropped() {
	if m == nil {
		return
	}
	m.readingsDropped.Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
