package ledger

import (
	"context"
	"time"

	domain "main/internal/domain/entity/ledger"

	"github.com/jackc/pgx/v5"
)

// HoldingsRepository stores broker position snapshots per date. It doubles
// as the price source for mark-to-market reads.
type HoldingsRepository struct {
	store *store
}

const holdingColumns = `snapshot_date, stk_cd, stk_nm, qty, avg_uv, cur_uv, loan_dt, crd_class, currency, exchange_code, market_value, pnl_amount, pnl_rate, purchase_amount`

// ReplaceForDate swaps out all holdings of one snapshot date. Delete and
// re-insert run in one transaction so readers never see a half-replaced day.
func (r *HoldingsRepository) ReplaceForDate(ctx context.Context, date time.Time, holdings []domain.Holding) error {
	day := domain.Day(date)
	return r.store.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM holdings WHERE snapshot_date = $1`, day); err != nil {
			return err
		}
		if len(holdings) == 0 {
			return nil
		}

		rows := make([][]interface{}, 0, len(holdings))
		for i := range holdings {
			h := &holdings[i]
			rows = append(rows, []interface{}{
				day,
				h.StockCode,
				h.StockName,
				h.Quantity,
				h.AvgPrice,
				h.CurrentPrice,
				h.LoanDate,
				h.CrdClass,
				h.Currency,
				h.ExchangeCode,
				h.MarketValue,
				h.PnLAmount,
				h.PnLRate,
				h.PurchaseAmount,
			})
		}
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"holdings"},
			[]string{
				"snapshot_date", "stk_cd", "stk_nm", "qty", "avg_uv", "cur_uv",
				"loan_dt", "crd_class", "currency", "exchange_code",
				"market_value", "pnl_amount", "pnl_rate", "purchase_amount",
			},
			pgx.CopyFromRows(rows),
		)
		return err
	})
}

func (r *HoldingsRepository) GetByDate(ctx context.Context, date time.Time) ([]domain.Holding, error) {
	const query = `
		SELECT ` + holdingColumns + `
		FROM holdings
		WHERE snapshot_date = $1
		ORDER BY stk_cd ASC, crd_class ASC, loan_dt ASC`
	rows, err := r.store.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h := domain.Holding{}
		err := rows.Scan(
			&h.SnapshotDate,
			&h.StockCode,
			&h.StockName,
			&h.Quantity,
			&h.AvgPrice,
			&h.CurrentPrice,
			&h.LoanDate,
			&h.CrdClass,
			&h.Currency,
			&h.ExchangeCode,
			&h.MarketValue,
			&h.PnLAmount,
			&h.PnLRate,
			&h.PurchaseAmount,
		)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// PricesAsOf returns, per position, the most recent reported price with
// snapshot date not after the given date. Loan date does not affect quotes,
// so rows collapse onto (stock, credit class).
func (r *HoldingsRepository) PricesAsOf(ctx context.Context, date time.Time) (map[domain.PriceKey]domain.PriceQuote, error) {
	const query = `
		SELECT DISTINCT ON (stk_cd, crd_class) stk_cd, crd_class, cur_uv, snapshot_date
		FROM holdings
		WHERE snapshot_date <= $1
		ORDER BY stk_cd, crd_class, snapshot_date DESC`
	rows, err := r.store.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[domain.PriceKey]domain.PriceQuote)
	for rows.Next() {
		var key domain.PriceKey
		var quote domain.PriceQuote
		if err := rows.Scan(&key.StockCode, &key.CrdClass, &quote.Price, &quote.AsOf); err != nil {
			return nil, err
		}
		prices[key] = quote
	}
	return prices, rows.Err()
}
