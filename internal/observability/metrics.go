package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the oracle's Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// --- Evaluation ---
	ScenariosEvaluated *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	UsersEvaluated     prometheus.Counter

	// --- Conservation ---
	ProtocolDeviation *prometheus.GaugeVec
	MarketDeviation   *prometheus.GaugeVec
	Violations        *prometheus.CounterVec

	// --- Export ---
	ExportedResults *prometheus.CounterVec
	ExportErrors    *prometheus.CounterVec
	ExportRetry     prometheus.Counter
}

// NewMetrics creates all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ScenariosEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debtoracle_scenarios_evaluated_total",
			Help: "Scenarios evaluated, by outcome (ok, violated, error)",
		}, []string{"outcome"}),

		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "debtoracle_evaluation_duration_seconds",
			Help:    "Time to evaluate and verify one scenario",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		UsersEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "debtoracle_users_evaluated_total",
			Help: "User positions evaluated across all scenarios",
		}),

		ProtocolDeviation: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "debtoracle_protocol_deviation",
			Help: "protocolDebt minus the sum of market debts, in token units",
		}, []string{"scenario"}),

		MarketDeviation: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "debtoracle_market_deviation",
			Help: "Market debt minus the sum of user principal, in token units",
		}, []string{"scenario", "market"}),

		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debtoracle_violations_total",
			Help: "Invariant violations detected, by kind",
		}, []string{"kind"}),

		ExportedResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debtoracle_exported_results_total",
			Help: "Scenario results handed to an exporter",
		}, []string{"exporter"}),

		ExportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "debtoracle_export_errors_total",
			Help: "Export failures, by exporter",
		}, []string{"exporter"}),

		ExportRetry: factory.NewCounter(prometheus.CounterOpts{
			Name: "debtoracle_export_retry_total",
			Help: "Retried export attempts",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
