// Package metrics provides the Prometheus metrics of the lookup server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stressdb_statements_total",
			Help: "Total number of statements executed",
		},
		[]string{"statement", "status"},
	)

	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stressdb_statement_duration_seconds",
			Help:    "Time taken to execute statements",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"statement"},
	)

	TableLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stressdb_table_loads_total",
			Help: "Total number of table loads from a source",
		},
		[]string{"variant", "source", "status"},
	)

	TableLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stressdb_table_load_duration_seconds",
			Help:    "Time taken to load a table from its source",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"variant", "source"},
	)

	TableRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stressdb_table_records",
			Help: "Number of records in each loaded table",
		},
		[]string{"variant"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stressdb_sessions_active",
			Help: "Number of open client sessions",
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stressdb_auth_failures_total",
			Help: "Total number of rejected authentication attempts",
		},
		[]string{"reason"},
	)
)

// RecordStatement records one executed statement. status is "ok", "error",
// or the no-data state a curve query ended in.
func RecordStatement(statement, status string, duration time.Duration) {
	StatementsTotal.WithLabelValues(statement, status).Inc()
	StatementDuration.WithLabelValues(statement).Observe(duration.Seconds())
}

// RecordTableLoad records one load of a variant from its source.
func RecordTableLoad(variant, source string, records int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		TableRecords.WithLabelValues(variant).Set(float64(records))
	}
	TableLoadsTotal.WithLabelValues(variant, source, status).Inc()
	TableLoadDuration.WithLabelValues(variant, source).Observe(duration.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
