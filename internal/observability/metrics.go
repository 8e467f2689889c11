// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Funding metrics
	FundingTransfers  *prometheus.CounterVec
	FundedLamports    prometheus.Counter
	FundingFailures   *prometheus.CounterVec
	FundingSkipped    prometheus.Counter
	ConfirmationTimes prometheus.Histogram

	// Upload metrics
	UploadsTotal   *prometheus.CounterVec
	UploadBytes    *prometheus.CounterVec
	UploadDuration *prometheus.HistogramVec
	EstimatedCost  *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge
	Notifications  *prometheus.CounterVec

	// Metadata read metrics
	MetadataReads     *prometheus.CounterVec
	MetadataCacheHits prometheus.Counter

	// Store metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers metrics on reg. Tests pass a fresh registry.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_studio"
	}
	f := promauto.With(reg)

	return &Metrics{
		FundingTransfers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funding",
			Name:      "transfers_total",
			Help:      "Total number of funding transfers by artifact kind",
		}, []string{"kind"}),
		FundedLamports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funding",
			Name:      "funded_lamports_total",
			Help:      "Total lamports transferred to storage nodes",
		}),
		FundingFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funding",
			Name:      "failures_total",
			Help:      "Total number of funding failures by stage",
		}, []string{"stage"}),
		FundingSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funding",
			Name:      "skipped_total",
			Help:      "Funding checks that found the balance sufficient",
		}),
		ConfirmationTimes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "funding",
			Name:      "confirmation_seconds",
			Help:      "Time from transfer submission to confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "total",
			Help:      "Uploads by kind and status",
		}, []string{"kind", "status"}),
		UploadBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Uploaded payload bytes by kind",
		}, []string{"kind"}),
		UploadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Upload operation duration including funding",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"kind"}),
		EstimatedCost: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "estimated_cost_lamports",
			Help:      "Quoted storage cost per upload",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
		}, []string{"kind"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "active_sessions",
			Help:      "Number of live upload sessions",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications emitted by type",
		}, []string{"type"}),

		MetadataReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "reads_total",
			Help:      "Metadata reads by status",
		}, []string{"status"}),
		MetadataCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_hits_total",
			Help:      "Metadata reads served from cache",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Helper methods are nil-safe so components can run without metrics.

// RecordFunding records a completed transfer.
func (m *Metrics) RecordFunding(kind string, lamports uint64, confirmSeconds float64) {
	if m == nil {
		return
	}
	m.FundingTransfers.WithLabelValues(kind).Inc()
	m.FundedLamports.Add(float64(lamports))
	m.ConfirmationTimes.Observe(confirmSeconds)
}

// RecordFundingSkipped records a check that needed no transfer.
func (m *Metrics) RecordFundingSkipped() {
	if m == nil {
		return
	}
	m.FundingSkipped.Inc()
}

// RecordFundingFailure records a funding failure at stage.
func (m *Metrics) RecordFundingFailure(stage string) {
	if m == nil {
		return
	}
	m.FundingFailures.WithLabelValues(stage).Inc()
}

// RecordUpload records an upload outcome.
func (m *Metrics) RecordUpload(kind, status string, bytes int, seconds float64) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(kind, status).Inc()
	m.UploadDuration.WithLabelValues(kind).Observe(seconds)
	if status == "success" {
		m.UploadBytes.WithLabelValues(kind).Add(float64(bytes))
	}
}

// RecordEstimate records a quoted cost.
func (m *Metrics) RecordEstimate(kind string, lamports uint64) {
	if m == nil {
		return
	}
	m.EstimatedCost.WithLabelValues(kind).Observe(float64(lamports))
}

// RecordNotification records an emitted notification.
func (m *Metrics) RecordNotification(typ string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(typ).Inc()
}

// RecordMetadataRead records a read outcome.
func (m *Metrics) RecordMetadataRead(status string, cached bool) {
	if m == nil {
		return
	}
	m.MetadataReads.WithLabelValues(status).Inc()
	if cached {
		m.MetadataCacheHits.Inc()
	}
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
