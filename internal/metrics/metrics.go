// Package metrics exposes controller counters and gauges for Prometheus.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "garden"

// Metrics holds the controller's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	connectAttempts  *prometheus.CounterVec
	publishFailures  *prometheus.CounterVec
	commands         *prometheus.CounterVec
	configChanges    prometheus.Counter
	configPersists   *prometheus.CounterVec
	sensorReads      *prometheus.CounterVec
	buttonPresses    prometheus.Counter
	lightOn          prometheus.Gauge
	valveOn          prometheus.Gauge
	temperature      prometheus.Gauge
	sessionConnected prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mqtt", Name: "connect_attempts_total",
			Help: "Broker connect attempts by result.",
		}, []string{"result"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mqtt", Name: "publish_failures_total",
			Help: "Failed publishes by kind (telemetry, ack, attributes_request).",
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rpc", Name: "commands_total",
			Help: "Remote commands by method and result.",
		}, []string{"method", "result"}),
		configChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "config", Name: "changes_total",
			Help: "Attribute merges that changed at least one parameter.",
		}),
		configPersists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "config", Name: "persists_total",
			Help: "Parameter snapshot writes by result.",
		}, []string{"result"}),
		sensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sensor", Name: "reads_total",
			Help: "Sensor reads by sensor and validity.",
		}, []string{"sensor", "valid"}),
		buttonPresses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "button_presses_total",
			Help: "Debounced manual button presses.",
		}),
		lightOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "light_on",
			Help: "1 when the light relay is commanded on.",
		}),
		valveOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "valve_on",
			Help: "1 when the valve relay is commanded on.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_celsius",
			Help: "Last valid air temperature.",
		}),
		sessionConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "mqtt", Name: "connected",
			Help: "1 while the broker session is connected.",
		}),
	}
	reg.MustRegister(
		m.connectAttempts, m.publishFailures, m.commands,
		m.configChanges, m.configPersists, m.sensorReads, m.buttonPresses,
		m.lightOn, m.valveOn, m.temperature, m.sessionConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *Metrics) ConnectAttempt(ok bool) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) PublishFailed(kind string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(kind).Inc()
}

// Command records one remote command. Unknown methods are folded into a
// single label value to bound cardinality.
func (m *Metrics) Command(method string, known, ok bool) {
	if m == nil {
		return
	}
	if !known {
		method = "unknown"
	}
	m.commands.WithLabelValues(method, result(ok)).Inc()
}

func (m *Metrics) ConfigChanged() {
	if m == nil {
		return
	}
	m.configChanges.Inc()
}

func (m *Metrics) ConfigPersisted(ok bool) {
	if m == nil {
		return
	}
	m.configPersists.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) SensorRead(sensor string, valid bool) {
	if m == nil {
		return
	}
	v := "false"
	if valid {
		v = "true"
	}
	m.sensorReads.WithLabelValues(sensor, v).Inc()
}

func (m *Metrics) ButtonPressed() {
	if m == nil {
		return
	}
	m.buttonPresses.Inc()
}

// Outputs sets the relay gauges.
func (m *Metrics) Outputs(light, valve bool) {
	if m == nil {
		return
	}
	m.lightOn.Set(boolGauge(light))
	m.valveOn.Set(boolGauge(valve))
}

func (m *Metrics) Temperature(c float64) {
	if m == nil {
		return
	}
	m.temperature.Set(c)
}

func (m *Metrics) Connected(b bool) {
	if m == nil {
		return
	}
	m.sessionConnected.Set(boolGauge(b))
}
