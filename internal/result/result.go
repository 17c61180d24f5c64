// Package result defines the records the oracle hands to external consumers.
// Consumers see only these records and Tolerance, never the arithmetic that
// produced them.
package result

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Tolerance is the per-value absolute tolerance, in token units, that a
// consumer applies when comparing constrained-precision output to the
// oracle's exact values.
const Tolerance int64 = 1

// ScenarioResult is the full evaluation of one protocol state.
type ScenarioResult struct {
	RunID       uuid.UUID `json:"run_id"`
	ScenarioID  string    `json:"scenario_id"`
	Name        string    `json:"name"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	ProtocolDebt            *big.Int       `json:"protocol_debt"`
	TotalBorrowedAllMarkets *big.Int       `json:"total_borrowed_all_markets"`
	Markets                 []MarketResult `json:"markets"`

	// Protocol-level conservation, filled by the verifier
	SumMarketDebts        *big.Int    `json:"sum_market_debts"`
	ProtocolDebtDeviation *big.Int    `json:"protocol_debt_deviation"`
	Violations            []Violation `json:"violations"`
}

// MarketResult is one market's allocation and its users.
type MarketResult struct {
	ID                 int          `json:"id"`
	TotalBorrowed      *big.Int     `json:"total_borrowed"`
	BorrowIndex        *big.Int     `json:"borrow_index"`
	ExpectedMarketDebt *big.Int     `json:"expected_market_debt"`
	Users              []UserResult `json:"users"`

	SumUserPrincipalDebt *big.Int `json:"sum_user_principal_debt"`
	SumUserTotalDebt     *big.Int `json:"sum_user_total_debt"`
	PrincipalDeviation   *big.Int `json:"principal_deviation"`
}

// UserResult is one user's expected debt breakdown.
type UserResult struct {
	BorrowAmount          *big.Int `json:"borrow_amount"`
	ScaledDebt            *big.Int `json:"scaled_debt"`
	CurrentDebt           *big.Int `json:"current_debt"`
	ExpectedPrincipalDebt *big.Int `json:"expected_principal_debt"`
	ExpectedSpreadDebt    *big.Int `json:"expected_spread_debt"`
	ExpectedTotalDebt     *big.Int `json:"expected_total_debt"`
	ScaledDebtDrift       *big.Int `json:"scaled_debt_drift"`
}

// OK reports whether every invariant held.
func (r *ScenarioResult) OK() bool {
	return len(r.Violations) == 0
}

// UserCount returns the number of users across all markets.
func (r *ScenarioResult) UserCount() int {
	n := 0
	for _, m := range r.Markets {
		n += len(m.Users)
	}
	return n
}
