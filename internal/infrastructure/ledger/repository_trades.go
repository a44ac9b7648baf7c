package ledger

import (
	"context"
	"errors"
	"time"

	domain "main/internal/domain/entity/ledger"

	"github.com/jackc/pgx/v5"
)

// TradeRepository persists trade executions keyed by broker order number.
type TradeRepository struct {
	store *store
}

const tradeColumns = `ord_no, stk_cd, stk_nm, side, crd_class, trade_date, ord_tm, cntr_qty, cntr_uv, loan_dt, currency, exchange_code`

const insertTradeQuery = `
	INSERT INTO account_trade_history (` + tradeColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

func (r *TradeRepository) AddTrade(ctx context.Context, trade *domain.TradeExecution) error {
	if trade == nil {
		return errors.New("nil trade")
	}
	_, err := r.store.pool.Exec(ctx, insertTradeQuery,
		trade.OrderNo,
		trade.StockCode,
		trade.StockName,
		trade.Side,
		trade.CrdClass,
		domain.Day(trade.TradeDate),
		trade.OrderTime,
		trade.Quantity,
		trade.Price,
		trade.LoanDate,
		trade.Currency,
		trade.ExchangeCode,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateOrder
	}
	return err
}

// AddTrades bulk-inserts executions in one transaction, skipping order
// numbers already stored. Returns the number of rows actually written.
func (r *TradeRepository) AddTrades(ctx context.Context, trades []domain.TradeExecution) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	const query = `
		INSERT INTO account_trade_history (` + tradeColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (ord_no) DO NOTHING`

	inserted := 0
	err := r.store.withTx(ctx, func(tx pgx.Tx) error {
		for i := range trades {
			t := &trades[i]
			tag, err := tx.Exec(ctx, query,
				t.OrderNo,
				t.StockCode,
				t.StockName,
				t.Side,
				t.CrdClass,
				domain.Day(t.TradeDate),
				t.OrderTime,
				t.Quantity,
				t.Price,
				t.LoanDate,
				t.Currency,
				t.ExchangeCode,
			)
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *TradeRepository) GetAll(ctx context.Context) ([]domain.TradeExecution, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM account_trade_history
		ORDER BY trade_date ASC, ord_tm ASC, ord_no ASC`
	rows, err := r.store.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrades(rows)
}

func (r *TradeRepository) GetByDate(ctx context.Context, date time.Time) ([]domain.TradeExecution, error) {
	const query = `
		SELECT ` + tradeColumns + `
		FROM account_trade_history
		WHERE trade_date = $1
		ORDER BY ord_tm ASC, ord_no ASC`
	rows, err := r.store.pool.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]domain.TradeExecution, error) {
	var trades []domain.TradeExecution
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (domain.TradeExecution, error) {
	trade := domain.TradeExecution{}
	err := row.Scan(
		&trade.OrderNo,
		&trade.StockCode,
		&trade.StockName,
		&trade.Side,
		&trade.CrdClass,
		&trade.TradeDate,
		&trade.OrderTime,
		&trade.Quantity,
		&trade.Price,
		&trade.LoanDate,
		&trade.Currency,
		&trade.ExchangeCode,
	)
	if err != nil {
		return domain.TradeExecution{}, err
	}
	return trade, nil
}
