package result

import (
	"fmt"
	"math/big"
)

// ViolationKind names the invariant that failed.
type ViolationKind string

const (
	// Σ market debt exceeded protocol debt
	KindProtocolOverallocation ViolationKind = "protocol_overallocation"
	// protocolDebt − Σ market debt reached the market count
	KindProtocolDeviationBound ViolationKind = "protocol_deviation_bound"
	KindMarketOverallocation   ViolationKind = "market_overallocation"
	KindMarketDeviationBound   ViolationKind = "market_deviation_bound"
	KindNegativeSpread         ViolationKind = "negative_spread"
	KindTotalMismatch          ViolationKind = "total_mismatch"
	// A value or intermediate product does not fit a 256-bit word
	KindWordOverflow ViolationKind = "word_overflow"
	KindScaledDrift  ViolationKind = "scaled_drift"
)

// Violation is one broken invariant with the values that broke it.
// MarketID and UserIndex are -1 when not applicable.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	MarketID  int           `json:"market_id"`
	UserIndex int           `json:"user_index"`
	Observed  *big.Int      `json:"observed"`
	Bound     *big.Int      `json:"bound"`
	Detail    string        `json:"detail,omitempty"`
}

func (v Violation) String() string {
	where := "protocol"
	switch {
	case v.MarketID >= 0 && v.UserIndex >= 0:
		where = fmt.Sprintf("market %d user %d", v.MarketID, v.UserIndex)
	case v.MarketID >= 0:
		where = fmt.Sprintf("market %d", v.MarketID)
	}
	s := fmt.Sprintf("%s at %s: observed %s, bound %s", v.Kind, where, v.Observed, v.Bound)
	if v.Detail != "" {
		s += " (" + v.Detail + ")"
	}
	return s
}
