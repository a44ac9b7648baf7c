package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	ledger "main/internal/domain/entity/ledger"

	"github.com/shopspring/decimal"
)

// exchangeCurrency maps KIS overseas exchange codes to their trading
// currency. Holdings and trade history are queried per exchange.
var exchangeCurrency = map[string]string{
	"NASD": "USD",
	"NYSE": "USD",
	"AMEX": "USD",
	"SEHK": "HKD",
	"SHAA": "CNY",
	"SZAA": "CNY",
	"TKSE": "JPY",
	"HASE": "VND",
	"VNSE": "VND",
}

// exchangeOrder fixes the iteration order so fetches are deterministic.
var exchangeOrder = []string{"NASD", "NYSE", "AMEX", "SEHK", "SHAA", "SZAA", "TKSE", "HASE", "VNSE"}

type holdingPayload struct {
	StockCode     string `json:"ovrs_pdno"`
	StockName     string `json:"ovrs_item_name"`
	Quantity      string `json:"ovrs_cblc_qty"`
	AvgPrice      string `json:"pchs_avg_pric"`
	CurrentPrice  string `json:"now_pric2"`
	LoanTypeCode  string `json:"loan_type_cd"`
	LoanDate      string `json:"loan_dt"`
	MarketValue   string `json:"ovrs_stck_evlu_amt"`
	PnLAmount     string `json:"frcr_evlu_pfls_amt"`
	PnLRate       string `json:"evlu_pfls_rt"`
	PurchaseAmt   string `json:"frcr_pchs_amt1"`
}

// Holdings fetches the current balance across all supported exchanges.
// Exchanges without positions answer with a no-data error, which is treated
// as an empty list.
func (c *Client) Holdings(ctx context.Context, snapshotDate time.Time) ([]ledger.Holding, error) {
	day := ledger.Day(snapshotDate)
	var holdings []ledger.Holding
	for _, exchange := range exchangeOrder {
		rows, err := c.holdingsForExchange(ctx, exchange)
		if err != nil {
			if isNoData(err) {
				continue
			}
			return nil, fmt.Errorf("holdings %s: %w", exchange, err)
		}
		currency := exchangeCurrency[exchange]
		for _, row := range rows {
			h, err := row.toHolding(day, exchange, currency)
			if err != nil {
				return nil, fmt.Errorf("holdings %s: %w", exchange, err)
			}
			holdings = append(holdings, h)
		}
	}
	return holdings, nil
}

func (c *Client) holdingsForExchange(ctx context.Context, exchange string) ([]holdingPayload, error) {
	const path = "/uapi/overseas-stock/v1/trading/inquire-balance"
	const trID = "TTTS3012R"

	var rows []holdingPayload
	fk, nk := "", ""
	for {
		params := url.Values{}
		params.Set("CANO", c.cfg.AccountNo)
		params.Set("ACNT_PRDT_CD", c.cfg.AccountProductCode)
		params.Set("OVRS_EXCG_CD", exchange)
		params.Set("TR_CRCY_CD", exchangeCurrency[exchange])
		params.Set("CTX_AREA_FK200", fk)
		params.Set("CTX_AREA_NK200", nk)

		envelope, trCont, err := c.get(ctx, path, trID, params)
		if err != nil {
			return nil, err
		}

		var page []holdingPayload
		if len(envelope.Output1) > 0 {
			if err := json.Unmarshal(envelope.Output1, &page); err != nil {
				return nil, fmt.Errorf("decode holdings page: %w", err)
			}
		}
		rows = append(rows, page...)

		if !hasMorePages(trCont) {
			break
		}
		fk, nk = envelope.CtxAreaFK200, envelope.CtxAreaNK200
		if fk == "" && nk == "" {
			break
		}
	}
	return rows, nil
}

func (p holdingPayload) toHolding(day time.Time, exchange, currency string) (ledger.Holding, error) {
	qty, err := parseQuantity(p.Quantity)
	if err != nil {
		return ledger.Holding{}, fmt.Errorf("stock %s: %w", p.StockCode, err)
	}
	return ledger.Holding{
		SnapshotDate:   day,
		StockCode:      p.StockCode,
		StockName:      p.StockName,
		Quantity:       qty,
		AvgPrice:       parseDecimal(p.AvgPrice),
		CurrentPrice:   parseDecimal(p.CurrentPrice),
		LoanDate:       strings.TrimSpace(p.LoanDate),
		CrdClass:       ledger.CreditClassFromLoanType(p.LoanTypeCode),
		Currency:       currency,
		ExchangeCode:   exchange,
		MarketValue:    parseDecimal(p.MarketValue),
		PnLAmount:      parseDecimal(p.PnLAmount),
		PnLRate:        parseDecimal(p.PnLRate),
		PurchaseAmount: parseDecimal(p.PurchaseAmt),
	}, nil
}

type tradePayload struct {
	OrderDate    string `json:"ord_dt"`
	OrderBranch  string `json:"ord_gno_brno"`
	OrderNumber  string `json:"odno"`
	StockCode    string `json:"pdno"`
	StockName    string `json:"prdt_name"`
	SideCode     string `json:"sll_buy_dvsn_cd"`
	SideName     string `json:"sll_buy_dvsn_cd_name"`
	OrderTime    string `json:"ord_tmd"`
	FilledQty    string `json:"ft_ccld_qty"`
	FilledPrice  string `json:"ft_ccld_unpr3"`
	LoanTypeCode string `json:"loan_type_cd"`
	LoanDate     string `json:"loan_dt"`
}

// TradeHistory fetches filled orders with order dates in [from, to] across
// all supported exchanges. Unfilled orders are excluded server-side.
func (c *Client) TradeHistory(ctx context.Context, from, to time.Time) ([]ledger.TradeExecution, error) {
	var trades []ledger.TradeExecution
	for _, exchange := range exchangeOrder {
		rows, err := c.tradesForExchange(ctx, exchange, from, to)
		if err != nil {
			if isNoData(err) {
				continue
			}
			return nil, fmt.Errorf("trade history %s: %w", exchange, err)
		}
		for _, row := range rows {
			trade, err := row.toExecution(exchange)
			if err != nil {
				return nil, fmt.Errorf("trade history %s: %w", exchange, err)
			}
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (c *Client) tradesForExchange(ctx context.Context, exchange string, from, to time.Time) ([]tradePayload, error) {
	const path = "/uapi/overseas-stock/v1/trading/inquire-ccnl"
	const trID = "TTTS3035R"

	var rows []tradePayload
	fk, nk := "", ""
	for {
		params := url.Values{}
		params.Set("CANO", c.cfg.AccountNo)
		params.Set("ACNT_PRDT_CD", c.cfg.AccountProductCode)
		params.Set("PDNO", "%")
		params.Set("ORD_STRT_DT", ledger.Day(from).Format("20060102"))
		params.Set("ORD_END_DT", ledger.Day(to).Format("20060102"))
		params.Set("SLL_BUY_DVSN", "00")
		params.Set("CCLD_NCCS_DVSN", "01")
		params.Set("OVRS_EXCG_CD", exchange)
		params.Set("SORT_SQN", "DS")
		params.Set("ORD_DT", "")
		params.Set("ORD_GNO_BRNO", "")
		params.Set("ODNO", "")
		params.Set("CTX_AREA_FK200", fk)
		params.Set("CTX_AREA_NK200", nk)

		envelope, trCont, err := c.get(ctx, path, trID, params)
		if err != nil {
			return nil, err
		}

		var page []tradePayload
		if len(envelope.Output) > 0 {
			if err := json.Unmarshal(envelope.Output, &page); err != nil {
				return nil, fmt.Errorf("decode trade page: %w", err)
			}
		}
		rows = append(rows, page...)

		if !hasMorePages(trCont) {
			break
		}
		fk, nk = envelope.CtxAreaFK200, envelope.CtxAreaNK200
		if fk == "" && nk == "" {
			break
		}
	}
	return rows, nil
}

func (p tradePayload) toExecution(exchange string) (ledger.TradeExecution, error) {
	qty, err := parseQuantity(p.FilledQty)
	if err != nil {
		return ledger.TradeExecution{}, fmt.Errorf("order %s: %w", p.OrderNumber, err)
	}

	side, err := sideFromCode(p.SideCode, p.SideName)
	if err != nil {
		return ledger.TradeExecution{}, fmt.Errorf("order %s: %w", p.OrderNumber, err)
	}

	tradeDate, err := time.Parse("20060102", p.OrderDate)
	if err != nil {
		return ledger.TradeExecution{}, fmt.Errorf("order %s: parse order date %q: %w", p.OrderNumber, p.OrderDate, err)
	}

	return ledger.TradeExecution{
		// Composite order number: the branch prefix keeps numbers unique
		// across accounts migrated between branches.
		OrderNo:      fmt.Sprintf("%s-%s-%s", p.OrderDate, p.OrderBranch, p.OrderNumber),
		StockCode:    p.StockCode,
		StockName:    p.StockName,
		Side:         side,
		CrdClass:     ledger.CreditClassFromLoanType(p.LoanTypeCode),
		TradeDate:    tradeDate,
		OrderTime:    p.OrderTime,
		Quantity:     qty,
		Price:        parseDecimal(p.FilledPrice),
		LoanDate:     strings.TrimSpace(p.LoanDate),
		Currency:     exchangeCurrency[exchange],
		ExchangeCode: exchange,
	}, nil
}

type presentBalancePayload struct {
	TotalDeposit string `json:"tot_dncl_amt"`
	TotalAsset   string `json:"tot_asst_amt"`
}

// AccountSummary fetches the cash side of the account. Stock valuation and
// cost basis are aggregated from holdings downstream, so only the cash
// balance comes from this endpoint.
func (c *Client) AccountSummary(ctx context.Context, snapshotDate time.Time) (*ledger.AccountSummary, error) {
	const path = "/uapi/overseas-stock/v1/trading/inquire-present-balance"
	const trID = "CTRP6504R"

	params := url.Values{}
	params.Set("CANO", c.cfg.AccountNo)
	params.Set("ACNT_PRDT_CD", c.cfg.AccountProductCode)
	params.Set("WCRC_FRCR_DVSN_CD", "02")
	params.Set("NATN_CD", "000")
	params.Set("TR_MKET_CD", "00")
	params.Set("INQR_DVSN_CD", "00")

	envelope, _, err := c.get(ctx, path, trID, params)
	if err != nil {
		if isNoData(err) {
			return &ledger.AccountSummary{SnapshotDate: ledger.Day(snapshotDate)}, nil
		}
		return nil, fmt.Errorf("present balance: %w", err)
	}

	var balance presentBalancePayload
	if len(envelope.Output3) > 0 {
		if err := json.Unmarshal(envelope.Output3, &balance); err != nil {
			return nil, fmt.Errorf("decode present balance: %w", err)
		}
	}

	return &ledger.AccountSummary{
		SnapshotDate: ledger.Day(snapshotDate),
		CashBalance:  parseDecimal(balance.TotalDeposit),
	}, nil
}

func sideFromCode(code, name string) (ledger.TradeSide, error) {
	switch strings.TrimSpace(code) {
	case "01":
		return ledger.TradeSideSell, nil
	case "02":
		return ledger.TradeSideBuy, nil
	}
	// Some responses leave the code blank and carry only the localized name.
	switch {
	case strings.Contains(name, "매수"):
		return ledger.TradeSideBuy, nil
	case strings.Contains(name, "매도"):
		return ledger.TradeSideSell, nil
	}
	return "", fmt.Errorf("unknown side code %q (%q)", code, name)
}

func parseQuantity(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	// Quantities arrive as "12" or "12.0000".
	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		value = value[:dot]
	}
	qty, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", value, err)
	}
	return qty, nil
}

func parseDecimal(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isNoData matches the KIS "no data" business error, which just means an
// exchange or account section holds nothing.
func isNoData(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no data")
}
