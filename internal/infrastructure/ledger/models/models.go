// Package models declares the gorm-tagged schema for the ledger tables.
// Migrations run through gorm's AutoMigrate; the hot path reads and writes
// through pgx with raw SQL against the same tables.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeModel struct {
	OrderNo      string          `gorm:"primaryKey;column:ord_no;type:varchar(64);not null"`
	StockCode    string          `gorm:"column:stk_cd;type:varchar(20);not null;index"`
	StockName    string          `gorm:"column:stk_nm;type:varchar(100)"`
	Side         string          `gorm:"column:side;type:varchar(4);not null"`
	CrdClass     string          `gorm:"column:crd_class;type:varchar(6);not null"`
	TradeDate    time.Time       `gorm:"column:trade_date;type:date;not null;index"`
	OrderTime    string          `gorm:"column:ord_tm;type:varchar(6)"`
	Quantity     int64           `gorm:"column:cntr_qty;type:bigint;not null"`
	Price        decimal.Decimal `gorm:"column:cntr_uv;type:numeric(18,4);not null"`
	LoanDate     string          `gorm:"column:loan_dt;type:varchar(8);not null;default:''"`
	Currency     string          `gorm:"column:currency;type:varchar(3)"`
	ExchangeCode string          `gorm:"column:exchange_code;type:varchar(4)"`
}

func (TradeModel) TableName() string {
	return "account_trade_history"
}

type HoldingModel struct {
	ID             int64           `gorm:"primaryKey;column:id;autoIncrement"`
	SnapshotDate   time.Time       `gorm:"column:snapshot_date;type:date;not null;uniqueIndex:uq_holdings_day_pos,priority:1"`
	StockCode      string          `gorm:"column:stk_cd;type:varchar(20);not null;uniqueIndex:uq_holdings_day_pos,priority:2"`
	StockName      string          `gorm:"column:stk_nm;type:varchar(100)"`
	Quantity       int64           `gorm:"column:qty;type:bigint;not null"`
	AvgPrice       decimal.Decimal `gorm:"column:avg_uv;type:numeric(18,4)"`
	CurrentPrice   decimal.Decimal `gorm:"column:cur_uv;type:numeric(18,4)"`
	LoanDate       string          `gorm:"column:loan_dt;type:varchar(8);not null;default:'';uniqueIndex:uq_holdings_day_pos,priority:4"`
	CrdClass       string          `gorm:"column:crd_class;type:varchar(6);not null;uniqueIndex:uq_holdings_day_pos,priority:3"`
	Currency       string          `gorm:"column:currency;type:varchar(3)"`
	ExchangeCode   string          `gorm:"column:exchange_code;type:varchar(4)"`
	MarketValue    decimal.Decimal `gorm:"column:market_value;type:numeric(18,4)"`
	PnLAmount      decimal.Decimal `gorm:"column:pnl_amount;type:numeric(18,4)"`
	PnLRate        decimal.Decimal `gorm:"column:pnl_rate;type:numeric(18,4)"`
	PurchaseAmount decimal.Decimal `gorm:"column:purchase_amount;type:numeric(18,4)"`
}

func (HoldingModel) TableName() string {
	return "holdings"
}

type LotModel struct {
	ID                  int64           `gorm:"primaryKey;column:id;autoIncrement"`
	StockCode           string          `gorm:"column:stk_cd;type:varchar(20);not null;uniqueIndex:uq_lots_business_key,priority:1"`
	StockName           string          `gorm:"column:stk_nm;type:varchar(100)"`
	CrdClass            string          `gorm:"column:crd_class;type:varchar(6);not null;uniqueIndex:uq_lots_business_key,priority:2"`
	LoanDate            string          `gorm:"column:loan_dt;type:varchar(8);not null;default:'';uniqueIndex:uq_lots_business_key,priority:3"`
	TradeDate           time.Time       `gorm:"column:trade_date;type:date;not null;uniqueIndex:uq_lots_business_key,priority:4"`
	NetQuantity         int64           `gorm:"column:net_qty;type:bigint;not null"`
	AvgPurchasePrice    decimal.Decimal `gorm:"column:avg_purchase_uv;type:numeric(18,4)"`
	TotalCost           decimal.Decimal `gorm:"column:total_cost;type:numeric(18,4)"`
	CurrentPrice        decimal.Decimal `gorm:"column:cur_uv;type:numeric(18,4)"`
	PriceStale          bool            `gorm:"column:price_stale;not null;default:false"`
	UnrealizedPnL       decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(18,4)"`
	UnrealizedReturnPct decimal.Decimal `gorm:"column:unrealized_return_pct;type:numeric(18,4)"`
	HoldingDays         int             `gorm:"column:holding_days;type:integer;not null;default:0"`
	Closed              bool            `gorm:"column:closed;not null;default:false;index"`
	ClosedDate          *time.Time      `gorm:"column:closed_date;type:date"`
	RealizedPnL         decimal.Decimal `gorm:"column:realized_pnl;type:numeric(18,4)"`
	Currency            string          `gorm:"column:currency;type:varchar(3)"`
	ExchangeCode        string          `gorm:"column:exchange_code;type:varchar(4)"`
}

func (LotModel) TableName() string {
	return "daily_lots"
}

type PortfolioPositionModel struct {
	ID                  int64           `gorm:"primaryKey;column:id;autoIncrement"`
	SnapshotDate        time.Time       `gorm:"column:snapshot_date;type:date;not null;uniqueIndex:uq_snapshot_day_pos,priority:1"`
	StockCode           string          `gorm:"column:stk_cd;type:varchar(20);not null;uniqueIndex:uq_snapshot_day_pos,priority:2"`
	StockName           string          `gorm:"column:stk_nm;type:varchar(100)"`
	CrdClass            string          `gorm:"column:crd_class;type:varchar(6);not null;uniqueIndex:uq_snapshot_day_pos,priority:3"`
	Currency            string          `gorm:"column:currency;type:varchar(3)"`
	ExchangeCode        string          `gorm:"column:exchange_code;type:varchar(4)"`
	TotalQuantity       int64           `gorm:"column:total_qty;type:bigint;not null"`
	AvgCostBasis        decimal.Decimal `gorm:"column:avg_cost_basis;type:numeric(18,4)"`
	CurrentPrice        decimal.Decimal `gorm:"column:cur_uv;type:numeric(18,4)"`
	PriceStale          bool            `gorm:"column:price_stale;not null;default:false"`
	MarketValue         decimal.Decimal `gorm:"column:market_value;type:numeric(18,4)"`
	TotalCost           decimal.Decimal `gorm:"column:total_cost;type:numeric(18,4)"`
	UnrealizedPnL       decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(18,4)"`
	UnrealizedReturnPct decimal.Decimal `gorm:"column:unrealized_return_pct;type:numeric(18,4)"`
	PortfolioWeightPct  decimal.Decimal `gorm:"column:portfolio_weight_pct;type:numeric(18,4)"`
	TotalPortfolioValue decimal.Decimal `gorm:"column:total_portfolio_value;type:numeric(18,4)"`
}

func (PortfolioPositionModel) TableName() string {
	return "portfolio_snapshot"
}

type DailySnapshotModel struct {
	SnapshotDate    time.Time       `gorm:"primaryKey;column:snapshot_date;type:date"`
	TotalAssetValue decimal.Decimal `gorm:"column:total_asset_value;type:numeric(18,4)"`
	StockValue      decimal.Decimal `gorm:"column:stock_value;type:numeric(18,4)"`
	CashBalance     decimal.Decimal `gorm:"column:cash_balance;type:numeric(18,4)"`
	CostBasis       decimal.Decimal `gorm:"column:cost_basis;type:numeric(18,4)"`
	DailyDeposit    decimal.Decimal `gorm:"column:daily_deposit;type:numeric(18,4)"`
	DailyWithdraw   decimal.Decimal `gorm:"column:daily_withdraw;type:numeric(18,4)"`
	DailyBuyAmount  decimal.Decimal `gorm:"column:daily_buy_amount;type:numeric(18,4)"`
	DailySellAmount decimal.Decimal `gorm:"column:daily_sell_amount;type:numeric(18,4)"`
	RealizedPnL     decimal.Decimal `gorm:"column:realized_pnl;type:numeric(18,4)"`
	UnrealizedPnL   decimal.Decimal `gorm:"column:unrealized_pnl;type:numeric(18,4)"`
}

func (DailySnapshotModel) TableName() string {
	return "daily_portfolio_snapshot"
}

type AccountSummaryModel struct {
	SnapshotDate  time.Time       `gorm:"primaryKey;column:snapshot_date;type:date"`
	StockValue    decimal.Decimal `gorm:"column:stock_value;type:numeric(18,4)"`
	CashBalance   decimal.Decimal `gorm:"column:cash_balance;type:numeric(18,4)"`
	TotalValue    decimal.Decimal `gorm:"column:total_value;type:numeric(18,4)"`
	CostBasis     decimal.Decimal `gorm:"column:cost_basis;type:numeric(18,4)"`
	DailyDeposit  decimal.Decimal `gorm:"column:daily_deposit;type:numeric(18,4)"`
	DailyWithdraw decimal.Decimal `gorm:"column:daily_withdraw;type:numeric(18,4)"`
}

func (AccountSummaryModel) TableName() string {
	return "account_summary"
}

type MarketIndexModel struct {
	IndexDate       time.Time        `gorm:"primaryKey;column:index_date;type:date"`
	SP500Close      *decimal.Decimal `gorm:"column:sp500_close;type:numeric(18,4)"`
	SP500Change     *decimal.Decimal `gorm:"column:sp500_change;type:numeric(18,4)"`
	SP500ChangePct  *decimal.Decimal `gorm:"column:sp500_change_pct;type:numeric(18,4)"`
	NasdaqClose     *decimal.Decimal `gorm:"column:nasdaq_close;type:numeric(18,4)"`
	NasdaqChange    *decimal.Decimal `gorm:"column:nasdaq_change;type:numeric(18,4)"`
	NasdaqChangePct *decimal.Decimal `gorm:"column:nasdaq_change_pct;type:numeric(18,4)"`
}

func (MarketIndexModel) TableName() string {
	return "market_index"
}

type SyncRunModel struct {
	ID         int64     `gorm:"primaryKey;column:id;autoIncrement"`
	RunID      uuid.UUID `gorm:"column:run_id;type:uuid;not null;index"`
	TargetDate time.Time `gorm:"column:target_date;type:date;not null;index"`
	Stage      string    `gorm:"column:stage;type:varchar(32);not null"`
	Status     string    `gorm:"column:status;type:varchar(8);not null"`
	Detail     string    `gorm:"column:detail;type:text"`
	FinishedAt time.Time `gorm:"column:finished_at;type:timestamptz;not null"`
}

func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&TradeModel{},
		&HoldingModel{},
		&LotModel{},
		&PortfolioPositionModel{},
		&DailySnapshotModel{},
		&AccountSummaryModel{},
		&MarketIndexModel{},
		&SyncRunModel{},
	}
}
