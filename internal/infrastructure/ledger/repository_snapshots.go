package ledger

import (
	"context"
	"errors"
	"time"

	domain "main/internal/domain/entity/ledger"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepository stores the per-stock and account-level daily snapshots.
type SnapshotRepository struct {
	store *store
}

const positionColumns = `snapshot_date, stk_cd, stk_nm, crd_class, currency, exchange_code, total_qty, avg_cost_basis, cur_uv, price_stale, market_value, total_cost, unrealized_pnl, unrealized_return_pct, portfolio_weight_pct, total_portfolio_value`

// ReplacePositions swaps out the per-stock snapshot rows of one date.
func (r *SnapshotRepository) ReplacePositions(ctx context.Context, date time.Time, positions []domain.PortfolioPosition) error {
	day := domain.Day(date)
	return r.store.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM portfolio_snapshot WHERE snapshot_date = $1`, day); err != nil {
			return err
		}
		if len(positions) == 0 {
			return nil
		}

		rows := make([][]interface{}, 0, len(positions))
		for i := range positions {
			p := &positions[i]
			rows = append(rows, []interface{}{
				day,
				p.StockCode,
				p.StockName,
				p.CrdClass,
				p.Currency,
				p.ExchangeCode,
				p.TotalQuantity,
				p.AvgCostBasis,
				p.CurrentPrice,
				p.PriceStale,
				p.MarketValue,
				p.TotalCost,
				p.UnrealizedPnL,
				p.UnrealizedReturnPct,
				p.PortfolioWeightPct,
				p.TotalPortfolioValue,
			})
		}
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"portfolio_snapshot"},
			[]string{
				"snapshot_date", "stk_cd", "stk_nm", "crd_class", "currency",
				"exchange_code", "total_qty", "avg_cost_basis", "cur_uv",
				"price_stale", "market_value", "total_cost", "unrealized_pnl",
				"unrealized_return_pct", "portfolio_weight_pct", "total_portfolio_value",
			},
			pgx.CopyFromRows(rows),
		)
		return err
	})
}

func (r *SnapshotRepository) GetPositions(ctx context.Context, date time.Time) ([]domain.PortfolioPosition, error) {
	const query = `
		SELECT ` + positionColumns + `
		FROM portfolio_snapshot
		WHERE snapshot_date = $1
		ORDER BY stk_cd ASC, crd_class ASC`
	rows, err := r.store.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.PortfolioPosition
	for rows.Next() {
		p := domain.PortfolioPosition{}
		err := rows.Scan(
			&p.SnapshotDate,
			&p.StockCode,
			&p.StockName,
			&p.CrdClass,
			&p.Currency,
			&p.ExchangeCode,
			&p.TotalQuantity,
			&p.AvgCostBasis,
			&p.CurrentPrice,
			&p.PriceStale,
			&p.MarketValue,
			&p.TotalCost,
			&p.UnrealizedPnL,
			&p.UnrealizedReturnPct,
			&p.PortfolioWeightPct,
			&p.TotalPortfolioValue,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// UpsertDaily writes the one-row account rollup; re-running a date overwrites
// its row in place.
func (r *SnapshotRepository) UpsertDaily(ctx context.Context, snap *domain.DailySnapshot) error {
	const query = `
		INSERT INTO daily_portfolio_snapshot (
			snapshot_date, total_asset_value, stock_value, cash_balance, cost_basis,
			daily_deposit, daily_withdraw, daily_buy_amount, daily_sell_amount,
			realized_pnl, unrealized_pnl
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_asset_value = EXCLUDED.total_asset_value,
			stock_value = EXCLUDED.stock_value,
			cash_balance = EXCLUDED.cash_balance,
			cost_basis = EXCLUDED.cost_basis,
			daily_deposit = EXCLUDED.daily_deposit,
			daily_withdraw = EXCLUDED.daily_withdraw,
			daily_buy_amount = EXCLUDED.daily_buy_amount,
			daily_sell_amount = EXCLUDED.daily_sell_amount,
			realized_pnl = EXCLUDED.realized_pnl,
			unrealized_pnl = EXCLUDED.unrealized_pnl`
	_, err := r.store.pool.Exec(ctx, query,
		domain.Day(snap.SnapshotDate),
		snap.TotalAssetValue,
		snap.StockValue,
		snap.CashBalance,
		snap.CostBasis,
		snap.DailyDeposit,
		snap.DailyWithdraw,
		snap.DailyBuyAmount,
		snap.DailySellAmount,
		snap.RealizedPnL,
		snap.UnrealizedPnL,
	)
	return err
}

func (r *SnapshotRepository) GetDaily(ctx context.Context, date time.Time) (*domain.DailySnapshot, error) {
	const query = `
		SELECT snapshot_date, total_asset_value, stock_value, cash_balance, cost_basis,
		       daily_deposit, daily_withdraw, daily_buy_amount, daily_sell_amount,
		       realized_pnl, unrealized_pnl
		FROM daily_portfolio_snapshot
		WHERE snapshot_date = $1`
	snap := &domain.DailySnapshot{}
	err := r.store.pool.QueryRow(ctx, query, domain.Day(date)).Scan(
		&snap.SnapshotDate,
		&snap.TotalAssetValue,
		&snap.StockValue,
		&snap.CashBalance,
		&snap.CostBasis,
		&snap.DailyDeposit,
		&snap.DailyWithdraw,
		&snap.DailyBuyAmount,
		&snap.DailySellAmount,
		&snap.RealizedPnL,
		&snap.UnrealizedPnL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}
