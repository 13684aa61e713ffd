// Package metrics exposes Prometheus instrumentation for the race engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "typerush"
	subsystem = "engine"
)

// Metrics holds the engine's Prometheus collectors. Registered on a
// dedicated registry so tests can run side by side without collisions.
type Metrics struct {
	registry *prometheus.Registry

	racesCreated  prometheus.Counter
	racesFinished prometheus.Counter
	seatsAcquired prometheus.Counter
	seatsReleased prometheus.Counter
	finishes      prometheus.Counter

	subscribers prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,
		racesCreated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "races_created_total",
			Help:      "Total number of races created",
		}),
		racesFinished: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "races_finished_total",
			Help:      "Total number of races that reached the finished state",
		}),
		seatsAcquired: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "seats_acquired_total",
			Help:      "Total number of seats acquired, including rejoins",
		}),
		seatsReleased: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "seats_released_total",
			Help:      "Total number of seats released",
		}),
		finishes: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "participant_finishes_total",
			Help:      "Total number of finish positions assigned",
		}),
		subscribers: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_subscribers",
			Help:      "Current number of connected event stream subscribers",
		}),
		httpRequests: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by route, method and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}
}

// Registry returns the underlying registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RaceCreated increments the created-race counter
func (m *Metrics) RaceCreated() {
	m.racesCreated.Inc()
}

// RaceFinished increments the finished-race counter
func (m *Metrics) RaceFinished() {
	m.racesFinished.Inc()
}

// SeatAcquired increments the seat counter
func (m *Metrics) SeatAcquired() {
	m.seatsAcquired.Inc()
}

// SeatReleased increments the release counter
func (m *Metrics) SeatReleased() {
	m.seatsReleased.Inc()
}

// FinishRecorded increments the finish-position counter
func (m *Metrics) FinishRecorded() {
	m.finishes.Inc()
}

// SubscriberConnected adjusts the subscriber gauge up
func (m *Metrics) SubscriberConnected() {
	m.subscribers.Inc()
}

// SubscriberDisconnected adjusts the subscriber gauge down
func (m *Metrics) SubscriberDisconnected() {
	m.subscribers.Dec()
}

// ObserveHTTPRequest records one served HTTP request
func (m *Metrics) ObserveHTTPRequest(route, method, status string, seconds float64) {
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}
