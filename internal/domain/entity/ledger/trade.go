package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the trade direction.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid checks if the trade side is a known value.
func (s TradeSide) IsValid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// TradeSideFromString creates a TradeSide from a string, case-insensitive.
func TradeSideFromString(value string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q", value)
	}
}

// CreditClass marks whether a position was opened with cash or on credit.
type CreditClass string

const (
	CreditClassCash   CreditClass = "CASH"
	CreditClassCredit CreditClass = "CREDIT"
)

// CreditClassFromLoanType maps broker loan type codes to a credit class.
// Codes 00/10 and empty mean a plain cash trade.
func CreditClassFromLoanType(code string) CreditClass {
	switch strings.TrimSpace(code) {
	case "", "00", "10":
		return CreditClassCash
	default:
		return CreditClassCredit
	}
}

// PositionKey identifies a position independent of the opening trade date.
// LoanDate is empty for cash trades and distinguishes credit draws otherwise.
type PositionKey struct {
	StockCode string
	CrdClass  CreditClass
	LoanDate  string
}

// LotKey is the lot business key: a position key plus the opening trade date.
// At most one lot may ever exist per LotKey.
type LotKey struct {
	PositionKey
	TradeDate time.Time
}

func (k LotKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.StockCode, k.CrdClass, k.LoanDate, k.TradeDate.Format(DateLayout))
}

// PriceKey identifies the price series of a position. Quotes do not vary by
// loan date, so the key is narrower than PositionKey.
type PriceKey struct {
	StockCode string
	CrdClass  CreditClass
}

// PriceQuote is the latest known price for a position as of some date.
type PriceQuote struct {
	Price decimal.Decimal
	AsOf  time.Time
}

// TradeExecution is a single broker-reported fill. Rows are immutable once
// stored; OrderNo is globally unique.
type TradeExecution struct {
	OrderNo      string          `json:"order_no"`
	StockCode    string          `json:"stock_code"`
	StockName    string          `json:"stock_name"`
	Side         TradeSide       `json:"side"`
	CrdClass     CreditClass     `json:"crd_class"`
	TradeDate    time.Time       `json:"trade_date"`
	OrderTime    string          `json:"order_time"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	LoanDate     string          `json:"loan_date"`
	Currency     string          `json:"currency"`
	ExchangeCode string          `json:"exchange_code"`
}

// Position returns the position key of the execution.
func (t TradeExecution) Position() PositionKey {
	return PositionKey{StockCode: t.StockCode, CrdClass: t.CrdClass, LoanDate: t.LoanDate}
}

// LotKey returns the business key of the lot this execution folds into.
func (t TradeExecution) LotKey() LotKey {
	return LotKey{PositionKey: t.Position(), TradeDate: Day(t.TradeDate)}
}

// Notional returns quantity times price.
func (t TradeExecution) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
