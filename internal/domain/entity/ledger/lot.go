package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a net position opened on a specific trade date under a specific
// credit class and loan date. It stays mutable while open and is frozen once
// closed; a later trade on the same position key starts a new lot.
//
// NetQuantity is signed: positive for long lots, negative for short lots.
// TotalCost is AvgPurchasePrice * NetQuantity, so it carries the same sign.
type Lot struct {
	ID                  int64           `json:"id"`
	StockCode           string          `json:"stock_code"`
	StockName           string          `json:"stock_name"`
	CrdClass            CreditClass     `json:"crd_class"`
	LoanDate            string          `json:"loan_date"`
	TradeDate           time.Time       `json:"trade_date"`
	NetQuantity         int64           `json:"net_quantity"`
	AvgPurchasePrice    decimal.Decimal `json:"avg_purchase_price"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	CurrentPrice        decimal.Decimal `json:"current_price"`
	PriceStale          bool            `json:"price_stale"`
	UnrealizedPnL       decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedReturnPct decimal.Decimal `json:"unrealized_return_pct"`
	HoldingDays         int             `json:"holding_days"`
	Closed              bool            `json:"closed"`
	ClosedDate          *time.Time      `json:"closed_date,omitempty"`
	RealizedPnL         decimal.Decimal `json:"realized_pnl"`
	Currency            string          `json:"currency"`
	ExchangeCode        string          `json:"exchange_code"`
}

// Key returns the lot business key.
func (l Lot) Key() LotKey {
	return LotKey{
		PositionKey: PositionKey{StockCode: l.StockCode, CrdClass: l.CrdClass, LoanDate: l.LoanDate},
		TradeDate:   Day(l.TradeDate),
	}
}

// Position returns the position key of the lot.
func (l Lot) Position() PositionKey {
	return PositionKey{StockCode: l.StockCode, CrdClass: l.CrdClass, LoanDate: l.LoanDate}
}

// PriceKey returns the price series key of the lot.
func (l Lot) PriceKey() PriceKey {
	return PriceKey{StockCode: l.StockCode, CrdClass: l.CrdClass}
}

// OpenAsOf reports whether the lot was still open at the end of the given
// date: either it never closed, or it closed strictly later.
func (l Lot) OpenAsOf(date time.Time) bool {
	if !l.Closed || l.ClosedDate == nil {
		return !l.Closed
	}
	return l.ClosedDate.After(Day(date))
}

// LotMetrics carries the daily mark-to-market refresh for one open lot.
type LotMetrics struct {
	LotID               int64
	HoldingDays         int
	CurrentPrice        decimal.Decimal
	PriceStale          bool
	UnrealizedPnL       decimal.Decimal
	UnrealizedReturnPct decimal.Decimal
}
