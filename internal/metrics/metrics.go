// Package metrics exposes gateway activity as Prometheus metrics. Counters
// are fed from the event bus, so no other package depends on Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/stitchgate/internal/errs"
	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
)

const namespace = "stitchgate"

// Metrics holds the collectors of one gateway process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	BackendCalls        *prometheus.CounterVec
	BackendCallDuration *prometheus.HistogramVec
	ProbeAttempts       *prometheus.CounterVec
	Introspections      *prometheus.CounterVec
	Phase               *prometheus.GaugeVec
}

// New registers every collector, plus the Go and process collectors, on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by status code",
			},
			[]string{"code"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operations_total",
				Help:      "Client operations by type and outcome (ok, partial, rejected)",
			},
			[]string{"operation_type", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operation_duration_seconds",
				Help:      "Client operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
		BackendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "calls_total",
				Help:      "Operations sent to backend services by outcome",
			},
			[]string{"service", "outcome"},
		),
		BackendCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "call_duration_seconds",
				Help:      "Backend call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		ProbeAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readiness",
				Name:      "failed_probes_total",
				Help:      "Failed connection attempts while waiting for services",
			},
			[]string{"address"},
		),
		Introspections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "startup",
				Name:      "introspections_total",
				Help:      "Schema introspections by service and outcome",
			},
			[]string{"service", "outcome"},
		),
		Phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "startup",
				Name:      "phase",
				Help:      "1 for the current startup phase, 0 otherwise",
			},
			[]string{"phase"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.Operations,
		m.OperationDuration,
		m.BackendCalls,
		m.BackendCallDuration,
		m.ProbeAttempts,
		m.Introspections,
		m.Phase,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Subscribe feeds the collectors from the event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.HTTPRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			opType := e.OperationType
			if opType == "" {
				opType = "unknown"
			}
			m.Operations.WithLabelValues(opType, operationOutcome(e)).Inc()
			if !e.Rejected {
				m.OperationDuration.WithLabelValues(opType).Observe(e.Duration.Seconds())
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.BackendCallFinish) {
			outcome := "ok"
			if e.Err != nil {
				outcome = string(errs.ClassOf(e.Err))
			}
			m.BackendCalls.WithLabelValues(e.Service, outcome).Inc()
			m.BackendCallDuration.WithLabelValues(e.Service).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ProbeAttempt) {
			m.ProbeAttempts.WithLabelValues(e.Address).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.IntrospectionFinish) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.Introspections.WithLabelValues(e.Service, outcome).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.PhaseChange) {
			if e.From != "" {
				m.Phase.WithLabelValues(e.From).Set(0)
			}
			m.Phase.WithLabelValues(e.To).Set(1)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func operationOutcome(e events.GraphQLFinish) string {
	switch {
	case e.Rejected:
		return "rejected"
	case len(e.Errors) > 0:
		return "partial"
	default:
		return "ok"
	}
}
