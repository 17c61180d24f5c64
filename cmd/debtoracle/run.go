package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"DebtOracle/internal/config"
	"DebtOracle/internal/observability"
	"DebtOracle/internal/oracle"
	"DebtOracle/internal/result"
	"DebtOracle/internal/scenario"
)

// session bundles what every subcommand needs.
type session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func newSession(cfg *config.Config, component string) *session {
	return &session{
		cfg:     cfg,
		logger:  observability.NewLoggerTo(os.Stderr, component, observability.ParseLogLevel(cfg.LogLevel)),
		metrics: observability.NewMetrics(),
	}
}

func (s *session) loadScenarios() ([]*scenario.ProtocolState, error) {
	if s.cfg.ScenarioFile == "" {
		return scenario.Builtin(), nil
	}
	states, err := scenario.LoadFile(s.cfg.ScenarioFile)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("file", s.cfg.ScenarioFile).Int("scenarios", len(states)).Msg("loaded scenarios")
	return states, nil
}

// evaluate runs every scenario and logs a one-line summary.
func (s *session) evaluate(ctx context.Context) (*oracle.Evaluator, []*result.ScenarioResult, error) {
	states, err := s.loadScenarios()
	if err != nil {
		return nil, nil, err
	}

	ev := oracle.NewEvaluator(
		oracle.WithLogger(s.logger),
		oracle.WithMetrics(s.metrics),
	)

	results, err := ev.EvaluateAll(ctx, states, s.cfg.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}

	s.logger.Info().
		Str("run_id", ev.RunID().String()).
		Int("scenarios", len(results)).
		Int("violated", len(oracle.Violations(results))).
		Msg("evaluation complete")

	return ev, results, nil
}

func (s *session) flushMetrics() {
	if s.cfg.MetricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		s.logger.Error().Err(err).Msg("metrics not written")
	}
}

func printSummary(results []*result.ScenarioResult) {
	for _, r := range results {
		status := "OK"
		if !r.OK() {
			status = "VIOLATED"
		}
		fmt.Printf("%-8s %-40s markets=%d users=%d protocol_deviation=%s\n",
			status, r.ScenarioID, len(r.Markets), r.UserCount(), r.ProtocolDebtDeviation)
		for _, m := range r.Markets {
			fmt.Printf("           market %d: debt=%s deviation=%s\n", m.ID, m.ExpectedMarketDebt, m.PrincipalDeviation)
		}
		for _, v := range r.Violations {
			fmt.Printf("           ! %s\n", v)
		}
	}
}
