package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/shopspring/decimal"
)

// SaveRun inserts a run and its fund rows in one transaction.
// A run id that already exists is an error; runs are immutable once written.
func (s *Store) SaveRun(ctx context.Context, result *domain.SimulationResult) error {
	if result == nil || result.Fund == nil {
		return fmt.Errorf("save run: result has no fund model")
	}
	if result.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	assumptionsJSON, err := json.Marshal(result.Assumptions)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, created_at, start_month, end_month, target_withdraw_rate, repayment_months, assumptions, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.Name,
		result.CreatedAt.UTC().Format(time.RFC3339Nano),
		result.Summary.Start.String(),
		result.Summary.End.String(),
		result.Fund.TargetWithdrawRate.String(),
		result.Fund.RepaymentMonths,
		string(assumptionsJSON),
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fund_rows
		(run_id, seq, month, market_return, workers, retirees, cpi, distribution, target, bau,
		 balance, principal, fund_ratio, principal_ratio, target_fund_ratio, real_fund_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	defer stmt.Close()

	for i, r := range result.Fund.Rows {
		_, err := stmt.ExecContext(ctx,
			result.RunID,
			i,
			r.Month.String(),
			r.Return.String(),
			r.Workers,
			r.Retirees,
			r.CPI.String(),
			r.Distribution.String(),
			r.Target.String(),
			r.BAU.String(),
			nullDecimal(r.Real),
			nullDecimal(r.Principal),
			nullRatio(r.FundRatio),
			nullRatio(r.PrincipalRatio),
			nullRatio(r.TargetFundRatio),
			nullRatio(r.RealFundRatio),
		)
		if err != nil {
			return fmt.Errorf("save run %s: row %s: %w", result.RunID, r.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	return nil
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// nullRatio stores non-finite ratios as NULL; they read back as NaN.
func nullRatio(r domain.Ratio) sql.NullFloat64 {
	if !r.IsFinite() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(r), Valid: true}
}
