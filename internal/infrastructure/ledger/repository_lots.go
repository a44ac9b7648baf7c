package ledger

import (
	"context"
	"time"

	domain "main/internal/domain/entity/ledger"

	"github.com/jackc/pgx/v5"
)

// LotRepository stores the derived lot ledger.
type LotRepository struct {
	store *store
}

const lotColumns = `id, stk_cd, stk_nm, crd_class, loan_dt, trade_date, net_qty, avg_purchase_uv, total_cost, cur_uv, price_stale, unrealized_pnl, unrealized_return_pct, holding_days, closed, closed_date, realized_pnl, currency, exchange_code`

// ReplaceAll swaps the whole lot ledger for a rebuild result. The delete and
// bulk insert run in one transaction; the unique business key index rejects a
// rebuild that produced two lots for the same key.
func (r *LotRepository) ReplaceAll(ctx context.Context, lots []domain.Lot) error {
	err := r.store.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM daily_lots`); err != nil {
			return err
		}
		if len(lots) == 0 {
			return nil
		}

		rows := make([][]interface{}, 0, len(lots))
		for i := range lots {
			l := &lots[i]
			rows = append(rows, []interface{}{
				l.StockCode,
				l.StockName,
				l.CrdClass,
				l.LoanDate,
				domain.Day(l.TradeDate),
				l.NetQuantity,
				l.AvgPurchasePrice,
				l.TotalCost,
				l.CurrentPrice,
				l.PriceStale,
				l.UnrealizedPnL,
				l.UnrealizedReturnPct,
				l.HoldingDays,
				l.Closed,
				nullableDate(l.ClosedDate),
				l.RealizedPnL,
				l.Currency,
				l.ExchangeCode,
			})
		}
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"daily_lots"},
			[]string{
				"stk_cd", "stk_nm", "crd_class", "loan_dt", "trade_date",
				"net_qty", "avg_purchase_uv", "total_cost", "cur_uv", "price_stale",
				"unrealized_pnl", "unrealized_return_pct", "holding_days",
				"closed", "closed_date", "realized_pnl", "currency", "exchange_code",
			},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if isUniqueViolation(err) {
		return domain.ErrLotKeyCollision
	}
	return err
}

func (r *LotRepository) GetAll(ctx context.Context) ([]domain.Lot, error) {
	const query = `
		SELECT ` + lotColumns + `
		FROM daily_lots
		ORDER BY stk_cd ASC, crd_class ASC, loan_dt ASC, trade_date ASC`
	return r.queryLots(ctx, query)
}

func (r *LotRepository) GetOpen(ctx context.Context) ([]domain.Lot, error) {
	const query = `
		SELECT ` + lotColumns + `
		FROM daily_lots
		WHERE NOT closed
		ORDER BY stk_cd ASC, crd_class ASC, loan_dt ASC, trade_date ASC`
	return r.queryLots(ctx, query)
}

func (r *LotRepository) GetOpenAsOf(ctx context.Context, date time.Time) ([]domain.Lot, error) {
	const query = `
		SELECT ` + lotColumns + `
		FROM daily_lots
		WHERE trade_date <= $1
		  AND (NOT closed OR closed_date > $1)
		ORDER BY stk_cd ASC, crd_class ASC, loan_dt ASC, trade_date ASC`
	return r.queryLots(ctx, query, domain.Day(date))
}

// UpdateMetrics applies a mark-to-market refresh in one transaction so a
// failed run never leaves the ledger half marked.
func (r *LotRepository) UpdateMetrics(ctx context.Context, metrics []domain.LotMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	const query = `
		UPDATE daily_lots
		SET cur_uv = $2,
			price_stale = $3,
			unrealized_pnl = $4,
			unrealized_return_pct = $5,
			holding_days = $6
		WHERE id = $1`
	return r.store.withTx(ctx, func(tx pgx.Tx) error {
		for _, m := range metrics {
			_, err := tx.Exec(ctx, query,
				m.LotID,
				m.CurrentPrice,
				m.PriceStale,
				m.UnrealizedPnL,
				m.UnrealizedReturnPct,
				m.HoldingDays,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *LotRepository) queryLots(ctx context.Context, query string, args ...interface{}) ([]domain.Lot, error) {
	rows, err := r.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func scanLot(row pgx.Row) (domain.Lot, error) {
	var closedDate *time.Time
	lot := domain.Lot{}
	err := row.Scan(
		&lot.ID,
		&lot.StockCode,
		&lot.StockName,
		&lot.CrdClass,
		&lot.LoanDate,
		&lot.TradeDate,
		&lot.NetQuantity,
		&lot.AvgPurchasePrice,
		&lot.TotalCost,
		&lot.CurrentPrice,
		&lot.PriceStale,
		&lot.UnrealizedPnL,
		&lot.UnrealizedReturnPct,
		&lot.HoldingDays,
		&lot.Closed,
		&closedDate,
		&lot.RealizedPnL,
		&lot.Currency,
		&lot.ExchangeCode,
	)
	if err != nil {
		return domain.Lot{}, err
	}
	lot.ClosedDate = closedDate
	return lot, nil
}

func nullableDate(value *time.Time) interface{} {
	if value == nil {
		return nil
	}
	return domain.Day(*value)
}
