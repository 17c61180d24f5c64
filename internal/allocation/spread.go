package allocation

import (
	"fmt"
	"math/big"

	"DebtOracle/internal/math"
)

// ComputeCurrentDebt returns floor(scaledDebt * borrowIndex / RAY).
func ComputeCurrentDebt(scaledDebt, borrowIndex *big.Int) *big.Int {
	// RAY is never zero
	out, _ := math.MulDiv(scaledDebt, borrowIndex, math.RAY, math.RoundDown)
	return out
}

// ComputeUserSpread returns the interest accrued above the user's principal.
// Never negative: an index below the origination index clamps to zero.
func ComputeUserSpread(scaledDebt, borrowIndex, userBorrow *big.Int) *big.Int {
	spread := new(big.Int).Sub(ComputeCurrentDebt(scaledDebt, borrowIndex), userBorrow)
	if spread.Sign() < 0 {
		return spread.SetInt64(0)
	}
	return spread
}

// RescaleDebt converts a current debt back into index units with rayDiv.
// A zero borrow index is an invalid protocol state and fails with
// math.ErrDivisionByZero.
func RescaleDebt(currentDebt, borrowIndex *big.Int) (*big.Int, error) {
	scaled, err := math.RayDiv(currentDebt, borrowIndex)
	if err != nil {
		return nil, fmt.Errorf("rescale debt %s at index %s: %w", currentDebt, borrowIndex, err)
	}
	return scaled, nil
}

// UserDebt is the full debt breakdown of one user.
type UserDebt struct {
	Principal   *big.Int
	Spread      *big.Int
	Total       *big.Int
	CurrentDebt *big.Int
	// ScaledDrift is scaledDebt minus rayDiv(currentDebt, borrowIndex).
	ScaledDrift *big.Int
}

// ComputeUserDebt derives principal, spread and total debt for one user of a
// market that was allocated marketDebt.
func ComputeUserDebt(marketDebt, marketTotal, borrowIndex, userBorrow, scaledDebt *big.Int) (UserDebt, error) {
	current := ComputeCurrentDebt(scaledDebt, borrowIndex)
	rescaled, err := RescaleDebt(current, borrowIndex)
	if err != nil {
		return UserDebt{}, err
	}

	principal := ComputeUserPrincipal(marketDebt, userBorrow, marketTotal)
	spread := ComputeUserSpread(scaledDebt, borrowIndex, userBorrow)

	return UserDebt{
		Principal:   principal,
		Spread:      spread,
		Total:       new(big.Int).Add(principal, spread),
		CurrentDebt: current,
		ScaledDrift: new(big.Int).Sub(scaledDebt, rescaled),
	}, nil
}
