package ledger

import (
	"context"
	"errors"
	"time"

	domain "main/internal/domain/entity/ledger"

	"github.com/jackc/pgx/v5"
)

// SummaryRepository stores the one-row-per-date account summary.
type SummaryRepository struct {
	store *store
}

func (r *SummaryRepository) Upsert(ctx context.Context, summary *domain.AccountSummary) error {
	if summary == nil {
		return errors.New("nil account summary")
	}
	const query = `
		INSERT INTO account_summary (
			snapshot_date, stock_value, cash_balance, total_value, cost_basis,
			daily_deposit, daily_withdraw
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			stock_value = EXCLUDED.stock_value,
			cash_balance = EXCLUDED.cash_balance,
			total_value = EXCLUDED.total_value,
			cost_basis = EXCLUDED.cost_basis,
			daily_deposit = EXCLUDED.daily_deposit,
			daily_withdraw = EXCLUDED.daily_withdraw`
	_, err := r.store.pool.Exec(ctx, query,
		domain.Day(summary.SnapshotDate),
		summary.StockValue,
		summary.CashBalance,
		summary.TotalValue,
		summary.CostBasis,
		summary.DailyDeposit,
		summary.DailyWithdraw,
	)
	return err
}

func (r *SummaryRepository) Get(ctx context.Context, date time.Time) (*domain.AccountSummary, error) {
	const query = `
		SELECT snapshot_date, stock_value, cash_balance, total_value, cost_basis,
		       daily_deposit, daily_withdraw
		FROM account_summary
		WHERE snapshot_date = $1`
	summary := &domain.AccountSummary{}
	err := r.store.pool.QueryRow(ctx, query, domain.Day(date)).Scan(
		&summary.SnapshotDate,
		&summary.StockValue,
		&summary.CashBalance,
		&summary.TotalValue,
		&summary.CostBasis,
		&summary.DailyDeposit,
		&summary.DailyWithdraw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return summary, nil
}
