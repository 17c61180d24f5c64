package scenario

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of user-defined scenarios.
//
//	scenarios:
//	  - id: two_markets
//	    name: Two markets
//	    protocol_debt: "1.1e12"
//	    markets:
//	      - id: 0
//	        total_borrowed: "7e11"
//	        growth: "1.08"
//	        users:
//	          - borrow_amount: "3e11"
//	          - borrow_amount: "4e11"
//	            scaled_debt: "370370370370"
type File struct {
	Scenarios []ScenarioSpec `yaml:"scenarios"`
}

type ScenarioSpec struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	ProtocolDebt string       `yaml:"protocol_debt"`
	Markets      []MarketSpec `yaml:"markets"`
}

type MarketSpec struct {
	ID            int    `yaml:"id"`
	TotalBorrowed string `yaml:"total_borrowed"`
	// Growth is a decimal factor ("1.08"); BorrowIndex is a raw ray integer.
	// Exactly one of them should be set; neither means RAY.
	Growth      string     `yaml:"growth"`
	BorrowIndex string     `yaml:"borrow_index"`
	Users       []UserSpec `yaml:"users"`
}

type UserSpec struct {
	BorrowAmount string `yaml:"borrow_amount"`
	// Derived as floor(borrow_amount * RAY / index) when empty.
	ScaledDebt string `yaml:"scaled_debt"`
}

// LoadFile reads scenarios from a YAML file.
func LoadFile(path string) ([]*ProtocolState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario file: %w", err)
	}
	defer f.Close()

	states, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return states, nil
}

// Load decodes and validates scenarios from r.
func Load(r io.Reader) ([]*ProtocolState, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}

	states := make([]*ProtocolState, 0, len(file.Scenarios))
	for i, spec := range file.Scenarios {
		s, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("scenario #%d (%s): %w", i, spec.ID, err)
		}
		if err := Validate(s); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}

func (spec ScenarioSpec) build() (*ProtocolState, error) {
	debt, err := parseAmount("protocol_debt", spec.ProtocolDebt)
	if err != nil {
		return nil, err
	}

	s := &ProtocolState{
		ID:           spec.ID,
		Name:         spec.Name,
		ProtocolDebt: debt,
		Markets:      make([]Market, 0, len(spec.Markets)),
	}
	if s.Name == "" {
		s.Name = spec.ID
	}

	for _, ms := range spec.Markets {
		m, err := ms.build()
		if err != nil {
			return nil, fmt.Errorf("market %d: %w", ms.ID, err)
		}
		s.Markets = append(s.Markets, m)
	}
	return s, nil
}

func (ms MarketSpec) build() (Market, error) {
	borrowed, err := parseAmount("total_borrowed", ms.TotalBorrowed)
	if err != nil {
		return Market{}, err
	}

	var index *big.Int
	switch {
	case ms.Growth != "" && ms.BorrowIndex != "":
		return Market{}, fmt.Errorf("%w: growth and borrow_index are mutually exclusive", ErrInvalidScenario)
	case ms.Growth != "":
		if index, err = GrowthIndex(ms.Growth); err != nil {
			return Market{}, err
		}
	case ms.BorrowIndex != "":
		if index, err = parseAmount("borrow_index", ms.BorrowIndex); err != nil {
			return Market{}, err
		}
	default:
		index = mustGrowthIndex("1")
	}

	m := Market{
		ID:            ms.ID,
		TotalBorrowed: borrowed,
		BorrowIndex:   index,
		Users:         make([]User, 0, len(ms.Users)),
	}

	for i, us := range ms.Users {
		amount, err := parseAmount("borrow_amount", us.BorrowAmount)
		if err != nil {
			return Market{}, fmt.Errorf("user %d: %w", i, err)
		}

		var scaled *big.Int
		if us.ScaledDebt != "" {
			scaled, err = parseAmount("scaled_debt", us.ScaledDebt)
		} else {
			scaled, err = ScaledDebt(amount, index)
		}
		if err != nil {
			return Market{}, fmt.Errorf("user %d: %w", i, err)
		}

		m.Users = append(m.Users, User{BorrowAmount: amount, ScaledDebt: scaled})
	}
	return m, nil
}

// parseAmount reads a non-negative integer written in decimal or exponent
// notation ("500000000000", "5e11").
func parseAmount(field, raw string) (*big.Int, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidScenario, field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, field, err)
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("%w: %s must be an integer, got %s", ErrInvalidScenario, field, raw)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative (%s)", ErrInvalidScenario, field, raw)
	}
	return d.BigInt(), nil
}
