package marketindex

import (
	"context"
	"fmt"
	"time"

	ledger "main/internal/domain/entity/ledger"
	domain "main/internal/domain/entity/marketindex"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const upsertPointQuery = `
	INSERT INTO market_index (
		index_date, sp500_close, sp500_change, sp500_change_pct,
		nasdaq_close, nasdaq_change, nasdaq_change_pct
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (index_date) DO UPDATE SET
		sp500_close = COALESCE(EXCLUDED.sp500_close, market_index.sp500_close),
		sp500_change = COALESCE(EXCLUDED.sp500_change, market_index.sp500_change),
		sp500_change_pct = COALESCE(EXCLUDED.sp500_change_pct, market_index.sp500_change_pct),
		nasdaq_close = COALESCE(EXCLUDED.nasdaq_close, market_index.nasdaq_close),
		nasdaq_change = COALESCE(EXCLUDED.nasdaq_change, market_index.nasdaq_change),
		nasdaq_change_pct = COALESCE(EXCLUDED.nasdaq_change_pct, market_index.nasdaq_change_pct)`

// Upsert writes one row per trading day. A one-sided fetch does not blank the
// other benchmark's columns on an existing row.
func (r *Repository) Upsert(ctx context.Context, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i := range points {
		p := &points[i]
		_, err = tx.Exec(ctx, upsertPointQuery,
			ledger.Day(p.IndexDate),
			p.SP500Close,
			p.SP500Change,
			p.SP500ChangePct,
			p.NasdaqClose,
			p.NasdaqChange,
			p.NasdaqChangePct,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetRange(ctx context.Context, from, to time.Time) ([]domain.IndexPoint, error) {
	const query = `
		SELECT index_date, sp500_close, sp500_change, sp500_change_pct,
		       nasdaq_close, nasdaq_change, nasdaq_change_pct
		FROM market_index
		WHERE index_date >= $1 AND index_date <= $2
		ORDER BY index_date ASC`
	rows, err := r.pool.Query(ctx, query, ledger.Day(from), ledger.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.IndexPoint
	for rows.Next() {
		p := domain.IndexPoint{}
		err := rows.Scan(
			&p.IndexDate,
			&p.SP500Close,
			&p.SP500Change,
			&p.SP500ChangePct,
			&p.NasdaqClose,
			&p.NasdaqChange,
			&p.NasdaqChangePct,
		)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
