// Package metrics holds the Prometheus collectors for sessions and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests        *prometheus.CounterVec
	CounterSessionsStarted *prometheus.CounterVec
	CounterSetsCompleted   *prometheus.CounterVec
	CounterSessionsEnded   prometheus.Counter
	CounterResultsSaved    *prometheus.CounterVec

	// gauges
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
	HistSessionSets     prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("fitarch", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("fitarch", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "status"}),
		CounterSessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_started_total",
			Help:      "The total number of started workout sessions",
		}, []string{"plan"}),
		CounterSetsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_completed_total",
			Help:      "The total number of logged sets",
		}, []string{"exercise"}),
		CounterSessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_ended_total",
			Help:      "The total number of ended workout sessions",
		}),
		CounterResultsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "results_saved_total",
			Help:      "Workout result saves by outcome",
		}, []string{"result"}),
		GaugeActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Number of sessions currently running",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method"}),
		HistSessionSets: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_sets",
			Help:      "Sets logged per ended session",
			Buckets:   []float64{0, 1, 5, 10, 15, 20, 30, 50},
		}),
	}
}

// SessionStarted implements workout.Observer.
func (m *Manager) SessionStarted(planName string) {
	m.CounterSessionsStarted.WithLabelValues(planName).Inc()
	m.GaugeActiveSessions.Inc()
}

// SetCompleted implements workout.Observer.
func (m *Manager) SetCompleted(exerciseName string) {
	m.CounterSetsCompleted.WithLabelValues(exerciseName).Inc()
}

// SessionEnded implements workout.Observer.
func (m *Manager) SessionEnded(sets int) {
	m.CounterSessionsEnded.Inc()
	m.GaugeActiveSessions.Dec()
	m.HistSessionSets.Observe(float64(sets))
}

// ResultSaved implements workout.Observer.
func (m *Manager) ResultSaved(err error) {
	if err != nil {
		m.CounterResultsSaved.WithLabelValues("error").Inc()
		return
	}
	m.CounterResultsSaved.WithLabelValues("ok").Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Manager) ObserveRequest(method string, status int, took time.Duration) {
	m.CounterRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HistRequestDuration.WithLabelValues(method).Observe(took.Seconds())
}
