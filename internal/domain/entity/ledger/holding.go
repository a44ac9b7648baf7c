package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a broker-reported position row for one snapshot date. Rows are
// immutable per (snapshot date, stock code, loan date); a re-sync replaces
// the whole date.
type Holding struct {
	SnapshotDate   time.Time       `json:"snapshot_date"`
	StockCode      string          `json:"stock_code"`
	StockName      string          `json:"stock_name"`
	Quantity       int64           `json:"quantity"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	LoanDate       string          `json:"loan_date"`
	CrdClass       CreditClass     `json:"crd_class"`
	Currency       string          `json:"currency"`
	ExchangeCode   string          `json:"exchange_code"`
	MarketValue    decimal.Decimal `json:"market_value"`
	PnLAmount      decimal.Decimal `json:"pnl_amount"`
	PnLRate        decimal.Decimal `json:"pnl_rate"`
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
}

// Position returns the position key of the holding.
func (h Holding) Position() PositionKey {
	return PositionKey{StockCode: h.StockCode, CrdClass: h.CrdClass, LoanDate: h.LoanDate}
}

// AccountSummary is the per-date account rollup derived from broker data.
// Total asset value is cash plus stock valuation.
type AccountSummary struct {
	SnapshotDate  time.Time       `json:"snapshot_date"`
	StockValue    decimal.Decimal `json:"stock_value"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	TotalValue    decimal.Decimal `json:"total_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	DailyDeposit  decimal.Decimal `json:"daily_deposit"`
	DailyWithdraw decimal.Decimal `json:"daily_withdraw"`
}
