package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"DebtOracle/internal/result"
)

// maxParams stays under Postgres' 65535 bind parameter limit.
const maxParams = 60_000

// ResultWriter writes scenario results to the oracle schema using
// multi-row INSERTs. Re-exporting the same run is idempotent.
type ResultWriter struct {
	db *sql.DB
}

func NewResultWriter(db *sql.DB) *ResultWriter {
	return &ResultWriter{db: db}
}

// WriteResults writes every row of results in one transaction.
func (w *ResultWriter) WriteResults(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	runs, scenarios, markets, users, err := buildRows(results, tolerance)
	if err != nil {
		return err
	}

	batches := []struct {
		table    string
		columns  []string
		conflict string
		rows     [][]interface{}
	}{
		{"oracle.runs", []string{"run_id", "tolerance"}, "(run_id)", runs},
		{"oracle.scenario_results", []string{
			"run_id", "scenario_id", "name", "evaluated_at", "protocol_debt",
			"total_borrowed", "sum_market_debts", "protocol_deviation", "violations",
		}, "(run_id, scenario_id)", scenarios},
		{"oracle.market_results", []string{
			"run_id", "scenario_id", "market_id", "total_borrowed", "borrow_index",
			"expected_market_debt", "sum_user_principal", "sum_user_total", "principal_deviation",
		}, "(run_id, scenario_id, market_id)", markets},
		{"oracle.user_results", []string{
			"run_id", "scenario_id", "market_id", "user_index", "borrow_amount", "scaled_debt",
			"current_debt", "expected_principal", "expected_spread", "expected_total", "scaled_debt_drift",
		}, "(run_id, scenario_id, market_id, user_index)", users},
	}

	for _, b := range batches {
		if err := insertRows(ctx, tx, b.table, b.columns, b.conflict, b.rows); err != nil {
			return fmt.Errorf("write %s: %w", b.table, err)
		}
	}

	return tx.Commit()
}

func buildRows(results []*result.ScenarioResult, tolerance int64) (runs, scenarios, markets, users [][]interface{}, err error) {
	seenRuns := make(map[uuid.UUID]struct{})

	for _, r := range results {
		if _, ok := seenRuns[r.RunID]; !ok {
			seenRuns[r.RunID] = struct{}{}
			runs = append(runs, []interface{}{r.RunID.String(), tolerance})
		}

		violations, err := json.Marshal(r.Violations)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal violations of %s: %w", r.ScenarioID, err)
		}
		if r.Violations == nil {
			violations = []byte("[]")
		}

		scenarios = append(scenarios, []interface{}{
			r.RunID.String(), r.ScenarioID, r.Name, r.EvaluatedAt,
			numeric(r.ProtocolDebt), numeric(r.TotalBorrowedAllMarkets),
			numeric(r.SumMarketDebts), numeric(r.ProtocolDebtDeviation), string(violations),
		})

		for _, m := range r.Markets {
			markets = append(markets, []interface{}{
				r.RunID.String(), r.ScenarioID, m.ID,
				numeric(m.TotalBorrowed), numeric(m.BorrowIndex), numeric(m.ExpectedMarketDebt),
				numeric(m.SumUserPrincipalDebt), numeric(m.SumUserTotalDebt), numeric(m.PrincipalDeviation),
			})

			for i, u := range m.Users {
				users = append(users, []interface{}{
					r.RunID.String(), r.ScenarioID, m.ID, i,
					numeric(u.BorrowAmount), numeric(u.ScaledDebt), numeric(u.CurrentDebt),
					numeric(u.ExpectedPrincipalDebt), numeric(u.ExpectedSpreadDebt),
					numeric(u.ExpectedTotalDebt), numeric(u.ScaledDebtDrift),
				})
			}
		}
	}
	return runs, scenarios, markets, users, nil
}

// insertRows builds chunked multi-row INSERTs ... ON CONFLICT DO NOTHING.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, conflict string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	perChunk := maxParams / len(columns)
	for start := 0; start < len(rows); start += perChunk {
		end := start + perChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]interface{}, 0, len(chunk)*len(columns))

		for i, row := range chunk {
			placeholders := make([]string, len(columns))
			for j := range columns {
				placeholders[j] = fmt.Sprintf("$%d", i*len(columns)+j+1)
			}
			values = append(values, "("+strings.Join(placeholders, ", ")+")")
			args = append(args, row...)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT %s DO NOTHING",
			table, strings.Join(columns, ", "), strings.Join(values, ", "), conflict)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// numeric renders a big.Int for a NUMERIC column. nil is stored as 0.
func numeric(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
