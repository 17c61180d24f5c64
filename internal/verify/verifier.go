// Package verify checks the conservation laws of an evaluated scenario and
// records the deviation figures at both aggregation levels.
package verify

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"DebtOracle/internal/math"
	"DebtOracle/internal/result"
)

// InvariantVerifier checks allocation invariants of a ScenarioResult.
type InvariantVerifier struct {
	tolerance *big.Int
}

func NewInvariantVerifier() *InvariantVerifier {
	return &InvariantVerifier{
		tolerance: big.NewInt(result.Tolerance),
	}
}

// Verify fills the sums, deviations and violations of r and returns the
// violations. A violation is reported data, not an error: the evaluation
// itself succeeded.
func (v *InvariantVerifier) Verify(r *result.ScenarioResult) []result.Violation {
	var violations []result.Violation

	sumMarketDebts := new(big.Int)
	for i := range r.Markets {
		m := &r.Markets[i]
		sumMarketDebts.Add(sumMarketDebts, m.ExpectedMarketDebt)
		violations = append(violations, v.verifyMarket(r, m)...)
	}

	r.SumMarketDebts = sumMarketDebts
	r.ProtocolDebtDeviation = new(big.Int).Sub(r.ProtocolDebt, sumMarketDebts)
	violations = append(violations, checkDeviation(
		r.ProtocolDebtDeviation, len(r.Markets), -1,
		result.KindProtocolOverallocation, result.KindProtocolDeviationBound,
	)...)

	if !fitsWord(r.ProtocolDebt) {
		violations = append(violations, wordOverflow(-1, -1, r.ProtocolDebt, "protocol debt"))
	}

	r.Violations = violations
	return violations
}

// verifyMarket checks one market's user-level conservation.
func (v *InvariantVerifier) verifyMarket(r *result.ScenarioResult, m *result.MarketResult) []result.Violation {
	var violations []result.Violation

	sumPrincipal := new(big.Int)
	sumTotal := new(big.Int)

	for i, u := range m.Users {
		sumPrincipal.Add(sumPrincipal, u.ExpectedPrincipalDebt)
		sumTotal.Add(sumTotal, u.ExpectedTotalDebt)

		if u.ExpectedSpreadDebt.Sign() < 0 {
			violations = append(violations, result.Violation{
				Kind: result.KindNegativeSpread, MarketID: m.ID, UserIndex: i,
				Observed: new(big.Int).Set(u.ExpectedSpreadDebt), Bound: new(big.Int),
			})
		}

		want := new(big.Int).Add(u.ExpectedPrincipalDebt, u.ExpectedSpreadDebt)
		if want.Cmp(u.ExpectedTotalDebt) != 0 {
			violations = append(violations, result.Violation{
				Kind: result.KindTotalMismatch, MarketID: m.ID, UserIndex: i,
				Observed: new(big.Int).Set(u.ExpectedTotalDebt), Bound: want,
			})
		}

		if m.BorrowIndex.Cmp(math.RAY) >= 0 && u.ScaledDebtDrift != nil &&
			new(big.Int).Abs(u.ScaledDebtDrift).Cmp(v.tolerance) > 0 {
			violations = append(violations, result.Violation{
				Kind: result.KindScaledDrift, MarketID: m.ID, UserIndex: i,
				Observed: new(big.Int).Set(u.ScaledDebtDrift), Bound: new(big.Int).Set(v.tolerance),
			})
		}

		violations = append(violations, checkWords(m.ID, i, map[string]*big.Int{
			"principal":                u.ExpectedPrincipalDebt,
			"total":                    u.ExpectedTotalDebt,
			"marketDebt * userBorrow":  new(big.Int).Mul(m.ExpectedMarketDebt, u.BorrowAmount),
			"scaledDebt * borrowIndex": new(big.Int).Mul(u.ScaledDebt, m.BorrowIndex),
		})...)
	}

	m.SumUserPrincipalDebt = sumPrincipal
	m.SumUserTotalDebt = sumTotal
	m.PrincipalDeviation = new(big.Int).Sub(m.ExpectedMarketDebt, sumPrincipal)

	violations = append(violations, checkDeviation(
		m.PrincipalDeviation, len(m.Users), m.ID,
		result.KindMarketOverallocation, result.KindMarketDeviationBound,
	)...)

	violations = append(violations, checkWords(m.ID, -1, map[string]*big.Int{
		"protocolDebt * marketBorrowed": new(big.Int).Mul(r.ProtocolDebt, m.TotalBorrowed),
	})...)

	return violations
}

// checkDeviation enforces 0 ≤ deviation < children. A zero deviation always
// passes so that childless, zero-debt parents are not flagged.
func checkDeviation(deviation *big.Int, children, marketID int, over, bound result.ViolationKind) []result.Violation {
	if deviation.Sign() < 0 {
		return []result.Violation{{
			Kind: over, MarketID: marketID, UserIndex: -1,
			Observed: new(big.Int).Set(deviation), Bound: new(big.Int),
		}}
	}

	limit := big.NewInt(int64(children))
	if deviation.Sign() > 0 && deviation.Cmp(limit) >= 0 {
		return []result.Violation{{
			Kind: bound, MarketID: marketID, UserIndex: -1,
			Observed: new(big.Int).Set(deviation), Bound: limit,
			Detail: fmt.Sprintf("must be < %d", children),
		}}
	}
	return nil
}

// checkWords reports every value that would not fit a uint256, in a stable
// order of names.
func checkWords(marketID, userIndex int, values map[string]*big.Int) []result.Violation {
	var violations []result.Violation
	for _, name := range sortedKeys(values) {
		if !fitsWord(values[name]) {
			violations = append(violations, wordOverflow(marketID, userIndex, values[name], name))
		}
	}
	return violations
}

func fitsWord(x *big.Int) bool {
	if x.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(x)
	return !overflow
}

func wordOverflow(marketID, userIndex int, observed *big.Int, what string) result.Violation {
	return result.Violation{
		Kind:      result.KindWordOverflow,
		MarketID:  marketID,
		UserIndex: userIndex,
		Observed:  new(big.Int).Set(observed),
		Bound:     maxWord.ToBig(),
		Detail:    what,
	}
}

var maxWord = new(uint256.Int).SetAllOne()

func sortedKeys(m map[string]*big.Int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
