package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// store owns the pgx pool shared by the per-table repositories.
type store struct {
	pool *pgxpool.Pool
}

// Repository bundles the ledger table repositories over one pool. Interface
// segregation happens at the domain layer; one pool and one transaction
// helper keep the lifecycle in a single place.
type Repository struct {
	store *store

	Trades    *TradeRepository
	Holdings  *HoldingsRepository
	Lots      *LotRepository
	Snapshots *SnapshotRepository
	Summary   *SummaryRepository
	Runs      *RunRepository
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

	s := &store{pool: pool}
	return &Repository{
		store:     s,
		Trades:    &TradeRepository{store: s},
		Holdings:  &HoldingsRepository{store: s},
		Lots:      &LotRepository{store: s},
		Snapshots: &SnapshotRepository{store: s},
		Summary:   &SummaryRepository{store: s},
		Runs:      &RunRepository{store: s},
	}, nil
}

func (r *Repository) Close() {
	if r == nil || r.store == nil || r.store.pool == nil {
		return
	}
	r.store.pool.Close()
}

func (s *store) withTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
