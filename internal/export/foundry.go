package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"math/big"
	"strings"
	"text/template"
	"unicode"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"DebtOracle/internal/result"
)

//go:embed templates/oracle_test.sol.tmpl
var templateFS embed.FS

var solidityTemplate = template.Must(template.ParseFS(templateFS, "templates/oracle_test.sol.tmpl"))

// FoundryEmitter renders results as a forge-std test contract that checks
// the on-chain CoreMath library against the oracle's values.
type FoundryEmitter struct {
	path           string
	contractName   string
	coreMathImport string
}

func NewFoundryEmitter(path, contractName, coreMathImport string) *FoundryEmitter {
	return &FoundryEmitter{
		path:           path,
		contractName:   contractName,
		coreMathImport: coreMathImport,
	}
}

func (e *FoundryEmitter) Name() string { return "foundry" }

func (e *FoundryEmitter) Export(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := e.Render(&buf, results, tolerance); err != nil {
		return err
	}
	return writeFileAtomic(e.path, buf.Bytes())
}

// Render writes the contract source to buf.
func (e *FoundryEmitter) Render(buf *bytes.Buffer, results []*result.ScenarioResult, tolerance int64) error {
	if tolerance < 0 {
		return fmt.Errorf("negative tolerance %d", tolerance)
	}

	doc := solDocument{
		ContractName:   e.contractName,
		CoreMathImport: e.coreMathImport,
		Tolerance:      tolerance,
	}

	seen := make(map[string]string, len(results))
	for _, r := range results {
		t, err := newSolTest(r)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", r.ScenarioID, err)
		}
		if prev, dup := seen[t.FuncName]; dup {
			return fmt.Errorf("scenarios %s and %s both render as %s", prev, r.ScenarioID, t.FuncName)
		}
		seen[t.FuncName] = r.ScenarioID
		if doc.RunID == uuid.Nil {
			doc.RunID = r.RunID
		}
		doc.Tests = append(doc.Tests, t)
	}

	if err := solidityTemplate.Execute(buf, doc); err != nil {
		return fmt.Errorf("render solidity: %w", err)
	}
	return nil
}

type solDocument struct {
	RunID          uuid.UUID
	ContractName   string
	CoreMathImport string
	Tolerance      int64
	Tests          []solTest
}

type solTest struct {
	FuncName      string
	Name          string
	ProtocolDebt  string
	TotalBorrowed string
	Markets       []solMarket
}

type solMarket struct {
	ID            int
	TotalBorrowed string
	BorrowIndex   string
	ExpectedDebt  string
	Allocates     bool // false when nothing is borrowed: the on-chain division would revert
	Users         []solUser
}

type solUser struct {
	Index        int
	BorrowAmount string
	ScaledDebt   string
	Principal    string
	Spread       string
	Total        string
}

func newSolTest(r *result.ScenarioResult) (solTest, error) {
	var lit literals
	t := solTest{
		FuncName:      "test_DebtAllocation_" + identifier(r.Name),
		Name:          strings.ReplaceAll(r.Name, "\n", " "),
		ProtocolDebt:  lit.word(r.ProtocolDebt),
		TotalBorrowed: lit.word(r.TotalBorrowedAllMarkets),
	}
	allocates := r.TotalBorrowedAllMarkets.Sign() > 0

	for _, m := range r.Markets {
		sm := solMarket{
			ID:            m.ID,
			TotalBorrowed: lit.word(m.TotalBorrowed),
			BorrowIndex:   lit.word(m.BorrowIndex),
			ExpectedDebt:  lit.word(m.ExpectedMarketDebt),
			Allocates:     allocates,
		}
		for i, u := range m.Users {
			sm.Users = append(sm.Users, solUser{
				Index:        i,
				BorrowAmount: lit.word(u.BorrowAmount),
				ScaledDebt:   lit.word(u.ScaledDebt),
				Principal:    lit.word(u.ExpectedPrincipalDebt),
				Spread:       lit.word(u.ExpectedSpreadDebt),
				Total:        lit.word(u.ExpectedTotalDebt),
			})
		}
		t.Markets = append(t.Markets, sm)
	}

	if lit.err != nil {
		return solTest{}, lit.err
	}
	return t, nil
}

// literals converts values to uint256 decimal literals, keeping the first
// failure.
type literals struct {
	err error
}

func (l *literals) word(x *big.Int) string {
	if l.err != nil {
		return ""
	}
	if x == nil || x.Sign() < 0 {
		l.err = fmt.Errorf("value %v is not a uint256", x)
		return ""
	}
	w, overflow := uint256.FromBig(x)
	if overflow {
		l.err = fmt.Errorf("value %s overflows uint256", x)
		return ""
	}
	return w.Dec()
}

// identifier turns a scenario name into a Solidity identifier fragment.
func identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}
