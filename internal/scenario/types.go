package scenario

import (
	"math/big"
)

// ProtocolState is one immutable synthetic protocol snapshot.
// Amounts are token units (6 decimals for USDC-like assets).
type ProtocolState struct {
	ID           string
	Name         string
	ProtocolDebt *big.Int
	Markets      []Market
}

// Market is a single lending pool.
type Market struct {
	ID            int
	TotalBorrowed *big.Int
	BorrowIndex   *big.Int // Ray-scaled cumulative growth since inception
	Users         []User
}

// User is one borrower position inside a market.
type User struct {
	BorrowAmount *big.Int
	ScaledDebt   *big.Int // principal ≈ ScaledDebt * indexAtOrigination / RAY
}

// TotalBorrowed sums TotalBorrowed over every market.
func (s *ProtocolState) TotalBorrowed() *big.Int {
	sum := new(big.Int)
	for _, m := range s.Markets {
		sum.Add(sum, m.TotalBorrowed)
	}
	return sum
}

// UserCount returns the number of users across all markets.
func (s *ProtocolState) UserCount() int {
	n := 0
	for _, m := range s.Markets {
		n += len(m.Users)
	}
	return n
}
