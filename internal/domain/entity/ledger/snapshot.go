package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortfolioPosition is one per-stock row of a dated portfolio snapshot,
// derived entirely from lots open as of that date. Weights across a date sum
// to 100% within rounding tolerance.
type PortfolioPosition struct {
	SnapshotDate        time.Time       `json:"snapshot_date"`
	StockCode           string          `json:"stock_code"`
	StockName           string          `json:"stock_name"`
	CrdClass            CreditClass     `json:"crd_class"`
	Currency            string          `json:"currency"`
	ExchangeCode        string          `json:"exchange_code"`
	TotalQuantity       int64           `json:"total_quantity"`
	AvgCostBasis        decimal.Decimal `json:"avg_cost_basis"`
	CurrentPrice        decimal.Decimal `json:"current_price"`
	PriceStale          bool            `json:"price_stale"`
	MarketValue         decimal.Decimal `json:"market_value"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	UnrealizedPnL       decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedReturnPct decimal.Decimal `json:"unrealized_return_pct"`
	PortfolioWeightPct  decimal.Decimal `json:"portfolio_weight_pct"`
	TotalPortfolioValue decimal.Decimal `json:"total_portfolio_value"`
}

// DailySnapshot is the one-row-per-date account rollup, in the settlement
// currency. Return-series computation downstream requires the table to be
// gap-free per trading day.
type DailySnapshot struct {
	SnapshotDate    time.Time       `json:"snapshot_date"`
	TotalAssetValue decimal.Decimal `json:"total_asset_value"`
	StockValue      decimal.Decimal `json:"stock_value"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	DailyDeposit    decimal.Decimal `json:"daily_deposit"`
	DailyWithdraw   decimal.Decimal `json:"daily_withdraw"`
	DailyBuyAmount  decimal.Decimal `json:"daily_buy_amount"`
	DailySellAmount decimal.Decimal `json:"daily_sell_amount"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
}

// Sync run stage outcomes recorded in the watermark table.
const (
	StageStatusOK     = "ok"
	StageStatusFailed = "failed"
)

// SyncStageRun records completion of one pipeline stage for one target date.
type SyncStageRun struct {
	RunID      uuid.UUID `json:"run_id"`
	TargetDate time.Time `json:"target_date"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail"`
	FinishedAt time.Time `json:"finished_at"`
}
