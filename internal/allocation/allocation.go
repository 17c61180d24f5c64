// Package allocation computes the two-level proportional debt distribution:
// protocol debt to market share, market share to user principal, plus the
// per-user accrued spread.
//
// Both allocation levels use truncating integer division, while the ray
// helpers in internal/math round half-up. The mismatch is what the
// accounting system under test does, so it is reproduced as-is: every level
// underallocates by less than its number of children.
package allocation

import (
	"math/big"

	"DebtOracle/internal/math"
)

// ComputeMarketDebt returns floor(protocolDebt * marketBorrowed / totalBorrowed),
// or 0 when totalBorrowed is zero.
func ComputeMarketDebt(protocolDebt, marketBorrowed, totalBorrowed *big.Int) *big.Int {
	return proportional(protocolDebt, marketBorrowed, totalBorrowed)
}

// ComputeUserPrincipal returns floor(marketDebt * userBorrow / marketTotal),
// or 0 when marketTotal is zero.
func ComputeUserPrincipal(marketDebt, userBorrow, marketTotal *big.Int) *big.Int {
	return proportional(marketDebt, userBorrow, marketTotal)
}

func proportional(amount, share, total *big.Int) *big.Int {
	if total.Sign() == 0 {
		return new(big.Int)
	}
	// total is non-zero, MulDiv cannot fail
	out, _ := math.MulDiv(amount, share, total, math.RoundDown)
	return out
}

// TotalBorrowed sums the given amounts.
func TotalBorrowed(amounts []*big.Int) *big.Int {
	sum := new(big.Int)
	for _, a := range amounts {
		sum.Add(sum, a)
	}
	return sum
}
