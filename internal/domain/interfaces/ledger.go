package interfaces

import (
	"context"
	"time"

	ledger "main/internal/domain/entity/ledger"
)

// TradeHistoryRepository persists the append-only execution stream.
type TradeHistoryRepository interface {
	// AddTrade inserts one execution; ledger.ErrDuplicateOrder when the
	// order number already exists.
	AddTrade(ctx context.Context, trade *ledger.TradeExecution) error
	// AddTrades bulk-inserts executions, silently skipping duplicates, and
	// returns the number of rows actually written.
	AddTrades(ctx context.Context, trades []ledger.TradeExecution) (int, error)
	GetAll(ctx context.Context) ([]ledger.TradeExecution, error)
	GetByDate(ctx context.Context, date time.Time) ([]ledger.TradeExecution, error)
}

// HoldingsRepository persists broker-reported daily position snapshots.
type HoldingsRepository interface {
	// ReplaceForDate swaps out all holdings of one snapshot date in a single
	// transaction; broker data is authoritative for the day.
	ReplaceForDate(ctx context.Context, date time.Time, holdings []ledger.Holding) error
	GetByDate(ctx context.Context, date time.Time) ([]ledger.Holding, error)
	// PricesAsOf returns, per position, the most recent reported price with
	// snapshot date not after the given date.
	PricesAsOf(ctx context.Context, date time.Time) (map[ledger.PriceKey]ledger.PriceQuote, error)
}

// LotRepository owns the lot ledger. No other component writes lots.
type LotRepository interface {
	// ReplaceAll swaps the whole ledger for the given rebuild result in one
	// transaction.
	ReplaceAll(ctx context.Context, lots []ledger.Lot) error
	GetAll(ctx context.Context) ([]ledger.Lot, error)
	GetOpen(ctx context.Context) ([]ledger.Lot, error)
	// GetOpenAsOf returns lots open at end of date: trade date not after it
	// and either never closed or closed strictly later.
	GetOpenAsOf(ctx context.Context, date time.Time) ([]ledger.Lot, error)
	// UpdateMetrics applies a mark-to-market refresh in one transaction.
	UpdateMetrics(ctx context.Context, metrics []ledger.LotMetrics) error
}

// SnapshotRepository owns the derived portfolio snapshot tables.
type SnapshotRepository interface {
	ReplacePositions(ctx context.Context, date time.Time, rows []ledger.PortfolioPosition) error
	GetPositions(ctx context.Context, date time.Time) ([]ledger.PortfolioPosition, error)
	UpsertDaily(ctx context.Context, snap *ledger.DailySnapshot) error
	GetDaily(ctx context.Context, date time.Time) (*ledger.DailySnapshot, error)
}

// AccountSummaryRepository persists per-date account rollups from the broker.
type AccountSummaryRepository interface {
	Upsert(ctx context.Context, summary *ledger.AccountSummary) error
	Get(ctx context.Context, date time.Time) (*ledger.AccountSummary, error)
}

// SyncRunRepository records pipeline stage completion per target date.
type SyncRunRepository interface {
	RecordStage(ctx context.Context, run *ledger.SyncStageRun) error
	// CompletedDates lists target dates with an ok record for the stage
	// within [from, to], ascending.
	CompletedDates(ctx context.Context, stage string, from, to time.Time) ([]time.Time, error)
}
