package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smarthome/backend/services/telemetry-service/internal/models"
)

const namespace = "telemetry"

// Metric holds the service collectors.
type Metric struct {
	registry        *prometheus.Registry
	readings        *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	logSize         prometheus.Gauge
	deviceState     prometheus.Gauge
	renderTiming    prometheus.Summary
	dashboardClient prometheus.Gauge
}

// New registers the collectors on a dedicated registry.
func New() *Metric {
	m := &Metric{
		registry: prometheus.NewRegistry(),
		readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_total",
				Help:      "Accepted sensor readings by decided device state.",
			},
			[]string{"device_state"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_readings_total",
				Help:      "Rejected sensor payloads by reason.",
			},
			[]string{"reason"},
		),
		logSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_size",
			Help:      "Readings currently retained in memory.",
		}),
		deviceState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_state",
			Help:      "Latest actuator decision, 1 for ON and 0 for OFF.",
		}),
		renderTiming: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "render_duration_seconds",
			Help:       "Dashboard render timing.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		dashboardClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_clients",
			Help:      "Connected dashboard websocket clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.readings,
		m.rejected,
		m.logSize,
		m.deviceState,
		m.renderTiming,
		m.dashboardClient,
	)

	return m
}

// ReadingAccepted counts an accepted reading and tracks the log size.
func (m *Metric) ReadingAccepted(reading models.Reading, logSize int) {
	m.readings.WithLabelValues(string(reading.DeviceState)).Inc()
	m.deviceState.Set(reading.DeviceState.Value())
	m.logSize.Set(float64(logSize))
}

// ReadingRejected counts a rejected payload.
func (m *Metric) ReadingRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// RenderTiming observes the duration of one dashboard render.
func (m *Metric) RenderTiming(start time.Time) {
	m.renderTiming.Observe(time.Since(start).Seconds())
}

// ClientConnected tracks dashboard websocket connections.
func (m *Metric) ClientConnected() {
	m.dashboardClient.Inc()
}

// ClientDisconnected tracks dashboard websocket disconnections.
func (m *Metric) ClientDisconnected() {
	m.dashboardClient.Dec()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metric) Registry() *prometheus.Registry {
	return m.registry
}
