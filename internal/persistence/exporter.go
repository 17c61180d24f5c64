package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"DebtOracle/internal/observability"
	"DebtOracle/internal/result"
)

// PostgresExporter persists results to the oracle schema, retrying failed
// writes with exponential backoff.
type PostgresExporter struct {
	writer      *ResultWriter
	logger      zerolog.Logger
	metrics     *observability.Metrics
	maxAttempts int
	backoff     time.Duration
}

func NewPostgresExporter(db *sql.DB, logger zerolog.Logger, metrics *observability.Metrics) *PostgresExporter {
	return &PostgresExporter{
		writer:      NewResultWriter(db),
		logger:      logger,
		metrics:     metrics,
		maxAttempts: 5,
		backoff:     100 * time.Millisecond,
	}
}

func (e *PostgresExporter) Name() string { return "postgres" }

// Export writes results, retrying up to maxAttempts times or until ctx ends.
func (e *PostgresExporter) Export(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error {
	backoff := e.backoff
	const maxBackoff = 5 * time.Second

	var err error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			e.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Int("results", len(results)).
				Msg("retrying result export")
			if e.metrics != nil {
				e.metrics.ExportRetry.Inc()
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("export cancelled after %d attempts: %w", attempt, err)
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		if err = e.writer.WriteResults(ctx, results, tolerance); err == nil {
			if attempt > 0 {
				e.logger.Info().Int("retries", attempt).Msg("result export succeeded after retries")
			}
			return nil
		}
	}
	return fmt.Errorf("export failed after %d attempts: %w", e.maxAttempts, err)
}
