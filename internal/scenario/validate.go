package scenario

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidScenario marks structurally malformed input.
var ErrInvalidScenario = errors.New("invalid scenario")

// Validate checks the structural shape of a state.
//
// A zero borrow index is deliberately not rejected here: it surfaces as a
// division by zero during evaluation. Indices below RAY are allowed and
// exercise spread clamping.
func Validate(s *ProtocolState) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidScenario)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidScenario)
	}
	if err := nonNegative("protocol debt", s.ProtocolDebt); err != nil {
		return fmt.Errorf("scenario %s: %w", s.ID, err)
	}

	seen := make(map[int]struct{}, len(s.Markets))
	for _, m := range s.Markets {
		if m.ID < 0 {
			return fmt.Errorf("scenario %s: %w: negative market id %d", s.ID, ErrInvalidScenario, m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("scenario %s: %w: duplicate market id %d", s.ID, ErrInvalidScenario, m.ID)
		}
		seen[m.ID] = struct{}{}

		if err := nonNegative("total borrowed", m.TotalBorrowed); err != nil {
			return fmt.Errorf("scenario %s market %d: %w", s.ID, m.ID, err)
		}
		if err := nonNegative("borrow index", m.BorrowIndex); err != nil {
			return fmt.Errorf("scenario %s market %d: %w", s.ID, m.ID, err)
		}
		for i, u := range m.Users {
			if err := nonNegative("borrow amount", u.BorrowAmount); err != nil {
				return fmt.Errorf("scenario %s market %d user %d: %w", s.ID, m.ID, i, err)
			}
			if err := nonNegative("scaled debt", u.ScaledDebt); err != nil {
				return fmt.Errorf("scenario %s market %d user %d: %w", s.ID, m.ID, i, err)
			}
		}
	}
	return nil
}

func nonNegative(field string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: %s is missing", ErrInvalidScenario, field)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative (%s)", ErrInvalidScenario, field, v)
	}
	return nil
}
