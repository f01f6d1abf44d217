package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	connectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jobseek",
			Subsystem: "stream",
			Name:      "connected_clients",
			Help:      "Current number of open event-stream connections.",
		},
	)
	eventsBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobseek",
			Subsystem: "stream",
			Name:      "events_broadcast_total",
			Help:      "Number of events fanned out to clients, by event type.",
		}, []string{"type"},
	)
	droppedClients = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobseek",
			Subsystem: "stream",
			Name:      "dropped_clients_total",
			Help:      "Number of clients removed because a broadcast write failed.",
		},
	)
	jobsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobseek",
			Subsystem: "ingest",
			Name:      "jobs_total",
			Help:      "Number of jobs received from the agent, by upsert outcome.",
		}, []string{"outcome"},
	)
	statusChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobseek",
			Subsystem: "jobs",
			Name:      "status_changes_total",
			Help:      "Number of job status transitions applied via the API.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{connectedClients, eventsBroadcast, droppedClients, jobsIngested, statusChanges}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func SetConnectedClients(n int) {
	if regOK.Load() {
		connectedClients.Set(float64(n))
	}
}
func IncEventBroadcast(eventType string) {
	if regOK.Load() {
		eventsBroadcast.WithLabelValues(eventType).Inc()
	}
}
func IncDroppedClient() {
	if regOK.Load() {
		droppedClients.Inc()
	}
}
func AddJobsIngested(outcome string, n int) {
	if regOK.Load() {
		jobsIngested.WithLabelValues(outcome).Add(float64(n))
	}
}
func IncStatusChange() {
	if regOK.Load() {
		statusChanges.Inc()
	}
}
