// Package scenario builds the deterministic synthetic protocol states the
// oracle evaluates.
package scenario

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"DebtOracle/internal/math"
)

// TokenDecimals is the precision of the borrowed asset (USDC).
const TokenDecimals = 6

// Built-in scenario identifiers.
const (
	IDSymmetric           = "equal_distribution"
	IDAsymmetricAccrual   = "unequal_distribution_with_interest"
	IDDegenerate          = "single_user_monopoly"
	IDAdversarialRounding = "prime_market_rounding"
)

// AdversarialPrimes drive the market sizes of AdversarialRounding.
var AdversarialPrimes = []int64{13, 17, 19, 23, 29, 31, 37}

var tokenScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// Units converts whole tokens into token units.
func Units(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), tokenScale)
}

// GrowthIndex converts a decimal growth factor such as "1.08" into a
// ray-scaled borrow index. The conversion is exact up to 27 decimals.
func GrowthIndex(factor string) (*big.Int, error) {
	d, err := decimal.NewFromString(factor)
	if err != nil {
		return nil, fmt.Errorf("parse growth factor %q: %w", factor, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative growth factor %q", ErrInvalidScenario, factor)
	}
	return d.Shift(27).BigInt(), nil
}

func mustGrowthIndex(factor string) *big.Int {
	idx, err := GrowthIndex(factor)
	if err != nil {
		panic(err)
	}
	return idx
}

// ScaledDebt expresses a principal in index units: floor(principal * RAY / index).
func ScaledDebt(principal, borrowIndex *big.Int) (*big.Int, error) {
	scaled, err := math.MulDiv(principal, math.RAY, borrowIndex, math.RoundDown)
	if err != nil {
		return nil, fmt.Errorf("scaled debt of %s at index %s: %w", principal, borrowIndex, err)
	}
	return scaled, nil
}

// accruedUser originates a position of amount at borrowIndex.
func accruedUser(amount, borrowIndex *big.Int) User {
	scaled, err := ScaledDebt(amount, borrowIndex)
	if err != nil {
		panic(err) // built-in indices are never zero
	}
	return User{BorrowAmount: amount, ScaledDebt: scaled}
}

// flatUser is a position with no accrued interest (index = RAY).
func flatUser(amount *big.Int) User {
	return User{BorrowAmount: amount, ScaledDebt: new(big.Int).Set(amount)}
}

// Symmetric: two markets of equal size, no accrued interest, round splits.
func Symmetric() *ProtocolState {
	return &ProtocolState{
		ID:           IDSymmetric,
		Name:         "Equal distribution across 2 markets",
		ProtocolDebt: Units(1_000_000),
		Markets: []Market{
			{
				ID:            0,
				TotalBorrowed: Units(500_000),
				BorrowIndex:   math.Ray(),
				Users: []User{
					flatUser(Units(100_000)),
					flatUser(Units(200_000)),
					flatUser(Units(200_000)),
				},
			},
			{
				ID:            1,
				TotalBorrowed: Units(500_000),
				BorrowIndex:   math.Ray(),
				Users: []User{
					flatUser(Units(250_000)),
					flatUser(Units(250_000)),
				},
			},
		},
	}
}

// AsymmetricAccrual: markets with distinct index growth, and protocol debt
// grown 10% over the borrowed total to simulate aggregate interest collection.
func AsymmetricAccrual() *ProtocolState {
	idx0 := mustGrowthIndex("1.08")
	idx1 := mustGrowthIndex("1.15")

	markets := []Market{
		{
			ID:            0,
			TotalBorrowed: Units(700_000),
			BorrowIndex:   idx0,
			Users: []User{
				accruedUser(Units(300_000), idx0),
				accruedUser(Units(400_000), idx0),
			},
		},
		{
			ID:            1,
			TotalBorrowed: Units(300_000),
			BorrowIndex:   idx1,
			Users: []User{
				accruedUser(Units(300_000), idx1),
			},
		},
	}

	s := &ProtocolState{
		ID:      IDAsymmetricAccrual,
		Name:    "Unequal distribution with different interest rates",
		Markets: markets,
	}
	s.ProtocolDebt = math.RayMul(s.TotalBorrowed(), mustGrowthIndex("1.10"))
	return s
}

// Degenerate: one market, one user holding all of its debt.
func Degenerate() *ProtocolState {
	idx := mustGrowthIndex("1.2")
	return &ProtocolState{
		ID:           IDDegenerate,
		Name:         "Single user monopoly in market",
		ProtocolDebt: Units(500_000),
		Markets: []Market{
			{
				ID:            0,
				TotalBorrowed: Units(500_000),
				BorrowIndex:   idx,
				Users: []User{
					accruedUser(Units(500_000), idx),
				},
			},
		},
	}
}

// AdversarialRounding: seven markets sized by distinct primes, each split
// across three users with a non-divisible remainder, under an odd protocol
// debt. Stresses truncation at both levels.
func AdversarialRounding() *ProtocolState {
	var primeSum int64
	for _, p := range AdversarialPrimes {
		primeSum += p
	}
	base := 1_000_000 / primeSum

	markets := make([]Market, 0, len(AdversarialPrimes))
	three := big.NewInt(3)
	for i, p := range AdversarialPrimes {
		borrowed := Units(p * base)
		third := new(big.Int).Quo(borrowed, three)
		rest := new(big.Int).Sub(borrowed, new(big.Int).Lsh(third, 1))

		markets = append(markets, Market{
			ID:            i,
			TotalBorrowed: borrowed,
			BorrowIndex:   math.Ray(),
			Users: []User{
				flatUser(third),
				flatUser(new(big.Int).Set(third)),
				flatUser(rest),
			},
		})
	}

	return &ProtocolState{
		ID:           IDAdversarialRounding,
		Name:         "Many markets with rounding edge cases",
		ProtocolDebt: Units(1_000_003),
		Markets:      markets,
	}
}

// Builtin returns every built-in family in a stable order.
func Builtin() []*ProtocolState {
	return []*ProtocolState{
		Symmetric(),
		AsymmetricAccrual(),
		Degenerate(),
		AdversarialRounding(),
	}
}
