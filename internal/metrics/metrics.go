// Package metrics registers the Prometheus collectors for job runs,
// executed orders, reconciliation writes and the cash balance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide collectors.
type Metrics struct {
	JobRuns        *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	OrdersExecuted prometheus.Counter
	SyncOps        *prometheus.CounterVec
	CashBalance    prometheus.Gauge
	PositionsHeld  prometheus.Gauge
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_job_runs_total",
			Help: "Scheduled job runs by job name and outcome.",
		}, []string{"job", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_job_duration_seconds",
			Help:    "Wall-clock duration of scheduled job runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"job"}),
		OrdersExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_orders_executed_total",
			Help: "Orders applied to the portfolio ledger.",
		}),
		SyncOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_position_sync_ops_total",
			Help: "Position reconciliation writes by kind.",
		}, []string{"kind"}),
		CashBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "folio_cash_balance",
			Help: "Most recently persisted cash balance.",
		}),
		PositionsHeld: factory.NewGauge(prometheus.GaugeOpts{
			Name: "folio_positions_held",
			Help: "Number of distinct instruments currently held.",
		}),
	}
}

// Default registers the collectors on the default Prometheus registry.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
