package math

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// RAY is the 27-decimal fixed-point scale used by interest indices.
var RAY = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

// halfRay is RAY/2, the half-up rounding offset for RayMul.
var halfRay = new(big.Int).Rsh(RAY, 1)

// ErrDivisionByZero is returned when a scaled division has a zero divisor.
// It always indicates an invalid protocol state.
var ErrDivisionByZero = errors.New("division by zero")

// DivisionError carries the operands of a failed division.
type DivisionError struct {
	Op        string
	Numerator *big.Int
	Divisor   *big.Int
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("%s: %s / %s: division by zero", e.Op, e.Numerator, e.Divisor)
}

func (e *DivisionError) Unwrap() error { return ErrDivisionByZero }

type RoundingMode int

const (
	RoundDown   RoundingMode = iota // Truncating integer division
	RoundHalfUp                     // (n + d/2) / d
)

func (m RoundingMode) String() string {
	switch m {
	case RoundDown:
		return "down"
	case RoundHalfUp:
		return "half_up"
	default:
		return fmt.Sprintf("RoundingMode(%d)", int(m))
	}
}

// Scratch big.Ints for intermediate products
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	intPool.Put(v)
}

// Ray returns a fresh copy of RAY.
func Ray() *big.Int {
	return new(big.Int).Set(RAY)
}

// divide computes numerator / denominator into a fresh big.Int.
// denominator must be positive.
func divide(numerator, denominator *big.Int, mode RoundingMode) *big.Int {
	n := getInt()
	defer putInt(n)
	n.Set(numerator)

	if mode == RoundHalfUp {
		half := getInt()
		half.Rsh(denominator, 1)
		n.Add(n, half)
		putInt(half)
	}

	// Div is Euclidean: floor for a positive denominator, matching uint256 semantics
	return new(big.Int).Div(n, denominator)
}

// RayMul computes (a*b + RAY/2) / RAY.
func RayMul(a, b *big.Int) *big.Int {
	product := getInt()
	defer putInt(product)

	product.Mul(a, b)
	product.Add(product, halfRay)

	return new(big.Int).Div(product, RAY)
}

// RayDiv computes (a*RAY + b/2) / b. Fails with ErrDivisionByZero when b is zero.
func RayDiv(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, &DivisionError{Op: "rayDiv", Numerator: new(big.Int).Set(a), Divisor: new(big.Int)}
	}

	scaled := getInt()
	defer putInt(scaled)
	scaled.Mul(a, RAY)

	return divide(scaled, b, RoundHalfUp), nil
}

// MulDiv computes a*b/c with the given rounding. Fails with ErrDivisionByZero when c is zero.
func MulDiv(a, b, c *big.Int, mode RoundingMode) (*big.Int, error) {
	if c.Sign() == 0 {
		return nil, &DivisionError{
			Op:        "mulDiv",
			Numerator: new(big.Int).Mul(a, b),
			Divisor:   new(big.Int),
		}
	}

	product := getInt()
	defer putInt(product)
	product.Mul(a, b)

	return divide(product, c, mode), nil
}
