// Package metrics holds the Prometheus instruments for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Operations      *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	AuditPublished  prometheus.Counter
	AuditIndexed    prometheus.Counter
	OutboxBacklog   prometheus.Gauge
	TotalSupply     prometheus.Gauge
	ComplianceCache *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearledger_operations_total",
			Help: "Ledger operations by name and result code",
		}, []string{"operation", "code"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clearledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		AuditPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "clearledger_audit_events_published_total",
			Help: "Audit events handed to the broker by the outbox worker",
		}),
		AuditIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "clearledger_audit_events_indexed_total",
			Help: "Audit events materialized by the indexer",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clearledger_outbox_backlog",
			Help: "Unpublished rows remaining in the outbox",
		}),
		TotalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clearledger_total_supply",
			Help: "Total ledger units in circulation",
		}),
		ComplianceCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clearledger_compliance_cache_total",
			Help: "Compliance status cache lookups by outcome",
		}, []string{"outcome"}),
	}
}

// RecordOperation counts one operation with its result code.
func (m *Metrics) RecordOperation(operation, code string) {
	m.Operations.WithLabelValues(operation, code).Inc()
}
