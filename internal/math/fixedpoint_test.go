package math_test

import (
	"errors"
	"math/big"
	"testing"

	"DebtOracle/internal/math"
)

func ray(mult int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(mult), math.RAY)
}

func halfRay() *big.Int {
	return new(big.Int).Rsh(math.RAY, 1)
}

// ============================================================================
// Test: RayMul
// ============================================================================

func TestRayMul(t *testing.T) {
	tests := []struct {
		name string
		a, b *big.Int
		want *big.Int
	}{
		{"identity", ray(1), ray(1), ray(1)},
		{"scale", big.NewInt(500), ray(2), big.NewInt(1000)},
		{"zero", big.NewInt(0), ray(7), big.NewInt(0)},
		{"exact half rounds up", big.NewInt(1), halfRay(), big.NewInt(1)},
		{"below half rounds down", big.NewInt(1), new(big.Int).Sub(halfRay(), big.NewInt(1)), big.NewInt(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := math.RayMul(tt.a, tt.b)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRayMul_DoesNotMutateOperands(t *testing.T) {
	a := big.NewInt(12345)
	b := ray(3)
	math.RayMul(a, b)

	if a.Int64() != 12345 || b.Cmp(ray(3)) != 0 {
		t.Errorf("operands mutated: a=%s b=%s", a, b)
	}
}

func TestRayMul_ResultsIndependent(t *testing.T) {
	first := math.RayMul(big.NewInt(10), ray(1))
	second := math.RayMul(big.NewInt(99), ray(1))

	if first.Int64() != 10 {
		t.Errorf("first result changed to %s after a later call", first)
	}
	if second.Int64() != 99 {
		t.Errorf("second: got %s, want 99", second)
	}
}

// ============================================================================
// Test: RayDiv
// ============================================================================

func TestRayDiv(t *testing.T) {
	tests := []struct {
		name string
		a, b *big.Int
		want *big.Int
	}{
		{"identity", ray(1), ray(1), ray(1)},
		{"halve", big.NewInt(1000), ray(2), big.NewInt(500)},
		{"exact half rounds up", big.NewInt(1), ray(2), big.NewInt(1)},
		{"below half rounds down", big.NewInt(1), ray(3), big.NewInt(0)},
		{"odd divisor", big.NewInt(2), big.NewInt(3), new(big.Int).Div(new(big.Int).Add(ray(2), big.NewInt(1)), big.NewInt(3))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := math.RayDiv(tt.a, tt.b)
			if err != nil {
				t.Fatalf("RayDiv: %v", err)
			}
			if got.Cmp(tt.want) != 0 {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRayDiv_ZeroDivisor(t *testing.T) {
	_, err := math.RayDiv(big.NewInt(42), big.NewInt(0))
	if !errors.Is(err, math.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}

	var divErr *math.DivisionError
	if !errors.As(err, &divErr) {
		t.Fatalf("expected *DivisionError, got %T", err)
	}
	if divErr.Op != "rayDiv" || divErr.Numerator.Int64() != 42 {
		t.Errorf("operands not carried: %+v", divErr)
	}
}

// ============================================================================
// Test: MulDiv
// ============================================================================

func TestMulDiv_Rounding(t *testing.T) {
	tests := []struct {
		a, b, c int64
		mode    math.RoundingMode
		want    int64
	}{
		{7, 1, 2, math.RoundDown, 3},
		{7, 1, 2, math.RoundHalfUp, 4},
		{5, 1, 3, math.RoundDown, 1},
		{5, 1, 3, math.RoundHalfUp, 2},
		{4, 1, 3, math.RoundHalfUp, 1},
		{2, 1, 3, math.RoundDown, 0},
		{2, 1, 3, math.RoundHalfUp, 1},
		{0, 9, 4, math.RoundHalfUp, 0},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got, err := math.MulDiv(big.NewInt(tt.a), big.NewInt(tt.b), big.NewInt(tt.c), tt.mode)
			if err != nil {
				t.Fatalf("MulDiv: %v", err)
			}
			if got.Int64() != tt.want {
				t.Errorf("%d*%d/%d (%s): got %s, want %d", tt.a, tt.b, tt.c, tt.mode, got, tt.want)
			}
		})
	}
}

func TestMulDiv_ZeroDivisor(t *testing.T) {
	_, err := math.MulDiv(big.NewInt(1), big.NewInt(2), big.NewInt(0), math.RoundDown)
	if !errors.Is(err, math.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

// ============================================================================
// Test: round trip rayMul(rayDiv(x, RAY), RAY) == x within 1
// ============================================================================

func checkRoundTrip(t *testing.T, x *big.Int) {
	t.Helper()
	scaled, err := math.RayDiv(x, math.RAY)
	if err != nil {
		t.Fatalf("RayDiv: %v", err)
	}
	back := math.RayMul(scaled, math.RAY)

	diff := new(big.Int).Sub(back, x)
	if diff.Abs(diff).Cmp(big.NewInt(1)) > 0 {
		t.Errorf("round trip of %s gave %s", x, back)
	}
}

func TestRayRoundTrip(t *testing.T) {
	maxWord := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	for _, x := range []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(999_999),
		big.NewInt(1_000_003_000_000),
		ray(1),
		new(big.Int).Sub(ray(5), big.NewInt(1)),
		maxWord,
	} {
		checkRoundTrip(t, x)
	}
}

func FuzzRayRoundTrip(f *testing.F) {
	f.Add([]byte{0})
	f.Add([]byte{0x01, 0x00})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, raw []byte) {
		checkRoundTrip(t, new(big.Int).SetBytes(raw))
	})
}
