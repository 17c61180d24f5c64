// Package oracle drives evaluation: allocation, spread, verification and
// result shaping for each protocol state.
package oracle

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"DebtOracle/internal/allocation"
	"DebtOracle/internal/observability"
	"DebtOracle/internal/result"
	"DebtOracle/internal/scenario"
	"DebtOracle/internal/verify"
)

// Evaluator turns protocol states into verified ScenarioResults.
// It holds no per-scenario state and is safe for concurrent use.
type Evaluator struct {
	runID    uuid.UUID
	verifier *verify.InvariantVerifier
	logger   zerolog.Logger
	metrics  *observability.Metrics // nil disables metrics
	now      func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the evaluator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// WithRunID pins the run id stamped on results.
func WithRunID(id uuid.UUID) Option {
	return func(e *Evaluator) { e.runID = id }
}

// WithClock overrides the evaluation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		runID:    uuid.New(),
		verifier: verify.NewInvariantVerifier(),
		logger:   zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunID returns the id stamped on every result of this evaluator.
func (e *Evaluator) RunID() uuid.UUID {
	return e.runID
}

// Evaluate computes every derived value of s and verifies its invariants.
// Invariant violations are reported in the result; an error means the state
// itself is malformed (invalid shape or a zero borrow index).
func (e *Evaluator) Evaluate(s *scenario.ProtocolState) (*result.ScenarioResult, error) {
	start := time.Now()

	r, err := e.evaluate(s)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ScenariosEvaluated.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	e.verifier.Verify(r)
	e.record(r, time.Since(start))
	return r, nil
}

func (e *Evaluator) evaluate(s *scenario.ProtocolState) (*result.ScenarioResult, error) {
	if err := scenario.Validate(s); err != nil {
		return nil, err
	}

	totalBorrowed := s.TotalBorrowed()
	r := &result.ScenarioResult{
		RunID:                   e.runID,
		ScenarioID:              s.ID,
		Name:                    s.Name,
		EvaluatedAt:             e.now(),
		ProtocolDebt:            new(big.Int).Set(s.ProtocolDebt),
		TotalBorrowedAllMarkets: totalBorrowed,
		Markets:                 make([]result.MarketResult, 0, len(s.Markets)),
	}

	for _, m := range s.Markets {
		marketDebt := allocation.ComputeMarketDebt(s.ProtocolDebt, m.TotalBorrowed, totalBorrowed)

		mr := result.MarketResult{
			ID:                 m.ID,
			TotalBorrowed:      new(big.Int).Set(m.TotalBorrowed),
			BorrowIndex:        new(big.Int).Set(m.BorrowIndex),
			ExpectedMarketDebt: marketDebt,
			Users:              make([]result.UserResult, 0, len(m.Users)),
		}

		for i, u := range m.Users {
			debt, err := allocation.ComputeUserDebt(marketDebt, m.TotalBorrowed, m.BorrowIndex, u.BorrowAmount, u.ScaledDebt)
			if err != nil {
				return nil, fmt.Errorf("scenario %s market %d user %d: %w", s.ID, m.ID, i, err)
			}

			mr.Users = append(mr.Users, result.UserResult{
				BorrowAmount:          new(big.Int).Set(u.BorrowAmount),
				ScaledDebt:            new(big.Int).Set(u.ScaledDebt),
				CurrentDebt:           debt.CurrentDebt,
				ExpectedPrincipalDebt: debt.Principal,
				ExpectedSpreadDebt:    debt.Spread,
				ExpectedTotalDebt:     debt.Total,
				ScaledDebtDrift:       debt.ScaledDrift,
			})
		}

		r.Markets = append(r.Markets, mr)
	}

	return r, nil
}

func (e *Evaluator) record(r *result.ScenarioResult, elapsed time.Duration) {
	for _, v := range r.Violations {
		e.logger.Warn().
			Str("scenario", r.ScenarioID).
			Str("kind", string(v.Kind)).
			Int("market", v.MarketID).
			Int("user", v.UserIndex).
			Str("observed", v.Observed.String()).
			Str("bound", v.Bound.String()).
			Msg("invariant violated")
	}

	e.logger.Debug().
		Str("scenario", r.ScenarioID).
		Int("markets", len(r.Markets)).
		Int("users", r.UserCount()).
		Str("protocol_deviation", r.ProtocolDebtDeviation.String()).
		Int("violations", len(r.Violations)).
		Dur("elapsed", elapsed).
		Msg("scenario evaluated")

	if e.metrics == nil {
		return
	}

	outcome := "ok"
	if !r.OK() {
		outcome = "violated"
	}
	e.metrics.ScenariosEvaluated.WithLabelValues(outcome).Inc()
	e.metrics.EvaluationDuration.Observe(elapsed.Seconds())
	e.metrics.UsersEvaluated.Add(float64(r.UserCount()))
	e.metrics.ProtocolDeviation.WithLabelValues(r.ScenarioID).Set(bigFloat(r.ProtocolDebtDeviation))
	for _, m := range r.Markets {
		e.metrics.MarketDeviation.WithLabelValues(r.ScenarioID, strconv.Itoa(m.ID)).Set(bigFloat(m.PrincipalDeviation))
	}
	for _, v := range r.Violations {
		e.metrics.Violations.WithLabelValues(string(v.Kind)).Inc()
	}
}

// bigFloat is only used for metric samples, never for values.
func bigFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
