// Package export hands ScenarioResult records to external consumers: a JSON
// file, a Postgres schema and a Foundry test contract. Exporters receive
// only the records and the tolerance constant.
package export

import (
	"context"
	"errors"
	"fmt"

	"DebtOracle/internal/observability"
	"DebtOracle/internal/result"
)

// ResultExporter is the boundary contract for result consumers.
type ResultExporter interface {
	Name() string
	Export(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error
}

// Multi fans results out to several exporters, collecting every failure.
type Multi struct {
	exporters []ResultExporter
	metrics   *observability.Metrics
}

func NewMulti(metrics *observability.Metrics, exporters ...ResultExporter) *Multi {
	return &Multi{exporters: exporters, metrics: metrics}
}

func (m *Multi) Name() string { return "multi" }

// Export runs every exporter even if an earlier one fails.
func (m *Multi) Export(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Export(ctx, results, tolerance); err != nil {
			if m.metrics != nil {
				m.metrics.ExportErrors.WithLabelValues(e.Name()).Inc()
			}
			errs = append(errs, fmt.Errorf("%s exporter: %w", e.Name(), err))
			continue
		}
		if m.metrics != nil {
			m.metrics.ExportedResults.WithLabelValues(e.Name()).Add(float64(len(results)))
		}
	}
	return errors.Join(errs...)
}
