package scenario_test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"DebtOracle/internal/math"
	"DebtOracle/internal/scenario"
	"DebtOracle/internal/testutil"
)

func units(whole int64) *big.Int {
	return scenario.Units(whole)
}

// ============================================================================
// Test: built-in families
// ============================================================================

func TestBuiltin_ValidAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range scenario.Builtin() {
		if err := scenario.Validate(s); err != nil {
			t.Errorf("%s: %v", s.ID, err)
		}
		if seen[s.ID] {
			t.Errorf("duplicate scenario id %s", s.ID)
		}
		seen[s.ID] = true

		for _, m := range s.Markets {
			if len(m.Users) == 0 {
				t.Errorf("%s market %d has no users", s.ID, m.ID)
			}
		}
	}
	if len(seen) != 4 {
		t.Errorf("got %d scenarios, want 4", len(seen))
	}
}

func TestBuiltin_Deterministic(t *testing.T) {
	a := scenario.AdversarialRounding()
	b := scenario.AdversarialRounding()
	for i := range a.Markets {
		if a.Markets[i].TotalBorrowed.Cmp(b.Markets[i].TotalBorrowed) != 0 {
			t.Errorf("market %d differs between builds", i)
		}
	}
	// Fresh values on every build
	a.Markets[0].TotalBorrowed.SetInt64(0)
	if b.Markets[0].TotalBorrowed.Sign() == 0 {
		t.Error("builds share big.Int values")
	}
}

func TestSymmetric(t *testing.T) {
	s := scenario.Symmetric()

	if s.ProtocolDebt.Cmp(units(1_000_000)) != 0 {
		t.Errorf("protocol debt: got %s", s.ProtocolDebt)
	}
	if len(s.Markets) != 2 {
		t.Fatalf("got %d markets, want 2", len(s.Markets))
	}
	for _, m := range s.Markets {
		if m.BorrowIndex.Cmp(math.RAY) != 0 {
			t.Errorf("market %d index %s, want RAY", m.ID, m.BorrowIndex)
		}
		if m.TotalBorrowed.Cmp(units(500_000)) != 0 {
			t.Errorf("market %d borrowed %s", m.ID, m.TotalBorrowed)
		}
	}

	want := []int64{100_000, 200_000, 200_000}
	for i, u := range s.Markets[0].Users {
		if u.BorrowAmount.Cmp(units(want[i])) != 0 || u.ScaledDebt.Cmp(u.BorrowAmount) != 0 {
			t.Errorf("user %d: borrow %s scaled %s", i, u.BorrowAmount, u.ScaledDebt)
		}
	}
}

func TestAsymmetricAccrual(t *testing.T) {
	s := scenario.AsymmetricAccrual()

	if s.ProtocolDebt.Cmp(units(1_100_000)) != 0 {
		t.Errorf("protocol debt: got %s, want %s", s.ProtocolDebt, units(1_100_000))
	}
	if got := s.Markets[0].BorrowIndex; got.Cmp(testutil.Big(t, "1080000000000000000000000000")) != 0 {
		t.Errorf("market 0 index: got %s", got)
	}
	if got := s.Markets[1].BorrowIndex; got.Cmp(testutil.Big(t, "1150000000000000000000000000")) != 0 {
		t.Errorf("market 1 index: got %s", got)
	}

	wantScaled := []string{"277777777777", "370370370370"}
	for i, u := range s.Markets[0].Users {
		if u.ScaledDebt.Cmp(testutil.Big(t, wantScaled[i])) != 0 {
			t.Errorf("market 0 user %d scaled: got %s, want %s", i, u.ScaledDebt, wantScaled[i])
		}
	}
	if got := s.Markets[1].Users[0].ScaledDebt; got.Cmp(testutil.Big(t, "260869565217")) != 0 {
		t.Errorf("market 1 user 0 scaled: got %s", got)
	}
}

func TestDegenerate(t *testing.T) {
	s := scenario.Degenerate()
	if len(s.Markets) != 1 || len(s.Markets[0].Users) != 1 {
		t.Fatalf("want exactly one market with one user")
	}
	u := s.Markets[0].Users[0]
	if u.BorrowAmount.Cmp(units(500_000)) != 0 {
		t.Errorf("borrow: got %s", u.BorrowAmount)
	}
	if u.ScaledDebt.Cmp(testutil.Big(t, "416666666666")) != 0 {
		t.Errorf("scaled: got %s, want 416666666666", u.ScaledDebt)
	}
}

func TestAdversarialRounding(t *testing.T) {
	s := scenario.AdversarialRounding()

	if len(s.Markets) != len(scenario.AdversarialPrimes) {
		t.Fatalf("got %d markets, want %d", len(s.Markets), len(scenario.AdversarialPrimes))
	}
	if s.ProtocolDebt.Cmp(units(1_000_003)) != 0 {
		t.Errorf("protocol debt: got %s", s.ProtocolDebt)
	}
	if got := s.Markets[0].TotalBorrowed; got.Cmp(testutil.Big(t, "76921000000")) != 0 {
		t.Errorf("market 0 borrowed: got %s, want 76921000000", got)
	}
	if got := s.TotalBorrowed(); got.Cmp(testutil.Big(t, "999973000000")) != 0 {
		t.Errorf("total borrowed: got %s, want 999973000000", got)
	}

	three := big.NewInt(3)
	for _, m := range s.Markets {
		if len(m.Users) != 3 {
			t.Fatalf("market %d: got %d users, want 3", m.ID, len(m.Users))
		}
		sum := new(big.Int)
		for _, u := range m.Users {
			sum.Add(sum, u.BorrowAmount)
		}
		if sum.Cmp(m.TotalBorrowed) != 0 {
			t.Errorf("market %d: users sum to %s, market has %s", m.ID, sum, m.TotalBorrowed)
		}
		if new(big.Int).Rem(m.TotalBorrowed, three).Sign() == 0 {
			t.Errorf("market %d borrowed %s divides evenly by 3", m.ID, m.TotalBorrowed)
		}
	}
}

func TestGrowthIndex(t *testing.T) {
	got, err := scenario.GrowthIndex("1.2")
	if err != nil {
		t.Fatalf("GrowthIndex: %v", err)
	}
	if got.Cmp(testutil.Big(t, "1200000000000000000000000000")) != 0 {
		t.Errorf("got %s", got)
	}

	if _, err := scenario.GrowthIndex("-1"); !errors.Is(err, scenario.ErrInvalidScenario) {
		t.Errorf("negative factor: got %v", err)
	}
	if _, err := scenario.GrowthIndex("abc"); err == nil {
		t.Error("expected parse error")
	}
}

func TestScaledDebt_ZeroIndex(t *testing.T) {
	_, err := scenario.ScaledDebt(units(1), big.NewInt(0))
	if !errors.Is(err, math.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

// ============================================================================
// Test: Validate
// ============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *scenario.ProtocolState)
	}{
		{"missing id", func(s *scenario.ProtocolState) { s.ID = "" }},
		{"negative protocol debt", func(s *scenario.ProtocolState) { s.ProtocolDebt = big.NewInt(-1) }},
		{"duplicate market", func(s *scenario.ProtocolState) { s.Markets[1].ID = s.Markets[0].ID }},
		{"negative market id", func(s *scenario.ProtocolState) { s.Markets[0].ID = -2 }},
		{"missing index", func(s *scenario.ProtocolState) { s.Markets[0].BorrowIndex = nil }},
		{"negative borrow", func(s *scenario.ProtocolState) { s.Markets[0].Users[0].BorrowAmount = big.NewInt(-5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scenario.Symmetric()
			tt.mutate(s)
			if err := scenario.Validate(s); !errors.Is(err, scenario.ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestValidate_AllowsZeroAndSubRayIndex(t *testing.T) {
	s := scenario.Symmetric()
	s.Markets[0].BorrowIndex = big.NewInt(0)
	s.Markets[1].BorrowIndex = big.NewInt(1)
	if err := scenario.Validate(s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ============================================================================
// Test: YAML loader
// ============================================================================

func TestLoadFile(t *testing.T) {
	states, err := scenario.LoadFile("testdata/scenarios.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(states))
	}

	s := states[0]
	if s.ProtocolDebt.Cmp(units(1_100_000)) != 0 {
		t.Errorf("protocol debt: got %s", s.ProtocolDebt)
	}
	if got := s.Markets[0].Users[0].ScaledDebt; got.Cmp(testutil.Big(t, "277777777777")) != 0 {
		t.Errorf("derived scaled debt: got %s, want 277777777777", got)
	}
	if got := s.Markets[0].Users[1].ScaledDebt; got.Cmp(testutil.Big(t, "370370370370")) != 0 {
		t.Errorf("explicit scaled debt: got %s", got)
	}
	if got := s.Markets[1].BorrowIndex; got.Cmp(testutil.Big(t, "1150000000000000000000000000")) != 0 {
		t.Errorf("raw index: got %s", got)
	}

	flat := states[1]
	if flat.Name != "flat_single" {
		t.Errorf("name defaults to id: got %q", flat.Name)
	}
	if flat.Markets[0].BorrowIndex.Cmp(math.RAY) != 0 {
		t.Errorf("default index: got %s, want RAY", flat.Markets[0].BorrowIndex)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"fractional amount", `
scenarios:
  - id: a
    protocol_debt: "1.5"
    markets: []
`},
		{"growth and index", `
scenarios:
  - id: a
    protocol_debt: "10"
    markets:
      - id: 0
        total_borrowed: "10"
        growth: "1.1"
        borrow_index: "1100000000000000000000000000"
        users: []
`},
		{"duplicate market", `
scenarios:
  - id: a
    protocol_debt: "10"
    markets:
      - {id: 0, total_borrowed: "5", users: []}
      - {id: 0, total_borrowed: "5", users: []}
`},
		{"missing amount", `
scenarios:
  - id: a
    markets: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Load(strings.NewReader(tt.doc))
			if !errors.Is(err, scenario.ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := scenario.Load(strings.NewReader("scenarios:\n  - id: a\n    protocol_debt: \"1\"\n    bogus: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}
