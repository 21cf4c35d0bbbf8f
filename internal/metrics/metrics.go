// Package metrics holds the Prometheus collectors for the protocol servers.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flowchat"

// Outcome label values.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
)

// unresolvedName replaces client supplied names that matched no command, keeping label cardinality bounded.
const unresolvedName = "unresolved"

type Metrics struct {
	registry *prometheus.Registry

	commands       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	connections    *prometheus.CounterVec
	active         *prometheus.GaugeVec
	framesTooLarge *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "dispatched_total",
				Help:      "Dispatched protocol commands.",
			},
			[]string{"transport", "command", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "commands",
				Name:      "duration_seconds",
				Help:      "Command execution time in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"transport", "command"},
		),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "connections_total",
				Help:      "Accepted connections (datagrams for udp).",
			},
			[]string{"transport"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "active_connections",
				Help:      "Currently open connections.",
			},
			[]string{"transport"},
		),
		framesTooLarge: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "frames_too_large_total",
				Help:      "Replies that did not fit in one frame.",
			},
			[]string{"transport"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands, m.duration, m.connections, m.active, m.framesTooLarge,
	)
	return m
}

// ObserveCommand records one dispatch.
func (m *Metrics) ObserveCommand(transport, command string, found bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeFound
	if !found {
		outcome = OutcomeNotFound
		command = unresolvedName
	}
	m.commands.WithLabelValues(transport, command, outcome).Inc()
	m.duration.WithLabelValues(transport, command).Observe(d.Seconds())
}

// ConnOpened records an accepted connection.
func (m *Metrics) ConnOpened(transport string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(transport).Inc()
	m.active.WithLabelValues(transport).Inc()
}

// ConnClosed records a closed connection.
func (m *Metrics) ConnClosed(transport string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(transport).Dec()
}

// FrameTooLarge records a reply that had to be replaced.
func (m *Metrics) FrameTooLarge(transport string) {
	if m == nil {
		return
	}
	m.framesTooLarge.WithLabelValues(transport).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
