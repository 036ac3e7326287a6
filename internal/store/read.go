package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rpgo/trust-solvency/internal/domain"
	"github.com/rpgo/trust-solvency/pkg/dateutil"
	"github.com/shopspring/decimal"
)

// RunInfo is the listing form of a stored run.
type RunInfo struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	CreatedAt time.Time                `json:"created_at"`
	Summary   domain.SimulationSummary `json:"summary"`
}

// ListRuns returns stored runs, newest first. A limit of 0 or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `SELECT id, name, created_at, summary FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var (
			info      RunInfo
			createdAt string
			summary   string
		)
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &summary); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("list runs: run %s: %w", info.ID, err)
		}
		if err := json.Unmarshal([]byte(summary), &info.Summary); err != nil {
			return nil, fmt.Errorf("list runs: run %s summary: %w", info.ID, err)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadRun reads a run back with its fund model. Population is not stored and stays nil.
func (s *Store) LoadRun(ctx context.Context, id string) (*domain.SimulationResult, error) {
	result := &domain.SimulationResult{RunID: id}
	var (
		createdAt, rate, assumptions, summary string
		repayment                             int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, created_at, target_withdraw_rate, repayment_months, assumptions, summary
		FROM runs WHERE id = ?
	`, id).Scan(&result.Name, &createdAt, &rate, &repayment, &assumptions, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	if result.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(assumptions), &result.Assumptions); err != nil {
		return nil, fmt.Errorf("load run %s assumptions: %w", id, err)
	}
	if err := json.Unmarshal([]byte(summary), &result.Summary); err != nil {
		return nil, fmt.Errorf("load run %s summary: %w", id, err)
	}
	withdraw, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	fundRows, err := s.loadFundRows(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Fund = &domain.FundModel{Rows: fundRows, TargetWithdrawRate: withdraw, RepaymentMonths: repayment}
	return result, nil
}

func (s *Store) loadFundRows(ctx context.Context, id string) ([]domain.FundModelRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, market_return, workers, retirees, cpi, distribution, target, bau,
		       balance, principal, fund_ratio, principal_ratio, target_fund_ratio, real_fund_ratio
		FROM fund_rows WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load run %s rows: %w", id, err)
	}
	defer rows.Close()

	var out []domain.FundModelRow
	for rows.Next() {
		var (
			r                                   domain.FundModelRow
			month, ret, cpi, dist, target, bau  string
			balance, principal                  sql.NullString
			fund, principalR, targetFund, realF sql.NullFloat64
		)
		if err := rows.Scan(&month, &ret, &r.Workers, &r.Retirees, &cpi, &dist, &target, &bau,
			&balance, &principal, &fund, &principalR, &targetFund, &realF); err != nil {
			return nil, fmt.Errorf("load run %s rows: %w", id, err)
		}
		if r.Month, err = dateutil.ParseMonth(month); err != nil {
			return nil, fmt.Errorf("load run %s rows: %w", id, err)
		}
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{{&r.Return, ret}, {&r.CPI, cpi}, {&r.Distribution, dist}, {&r.Target, target}, {&r.BAU, bau}} {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("load run %s row %s: %w", id, month, err)
			}
		}
		if r.Real, err = scanDecimal(balance); err != nil {
			return nil, fmt.Errorf("load run %s row %s: %w", id, month, err)
		}
		if r.Principal, err = scanDecimal(principal); err != nil {
			return nil, fmt.Errorf("load run %s row %s: %w", id, month, err)
		}
		r.FundRatio = scanRatio(fund)
		r.PrincipalRatio = scanRatio(principalR)
		r.TargetFundRatio = scanRatio(targetFund)
		r.RealFundRatio = scanRatio(realF)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run %s rows: %w", id, err)
	}
	return out, nil
}

func scanDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanRatio(nf sql.NullFloat64) domain.Ratio {
	if !nf.Valid {
		return domain.Ratio(math.NaN())
	}
	return domain.Ratio(nf.Float64)
}
