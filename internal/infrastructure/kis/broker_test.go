package kis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"main/internal/config"
	ledger "main/internal/domain/entity/ledger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12", 12},
		{"12.0000", 12},
		{"", 0},
		{" 7 ", 7},
	}
	for _, tc := range cases {
		got, err := parseQuantity(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := parseQuantity("abc")
	require.Error(t, err)
}

func TestSideFromCode(t *testing.T) {
	side, err := sideFromCode("02", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.TradeSideBuy, side)

	side, err = sideFromCode("01", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.TradeSideSell, side)

	side, err = sideFromCode("", "매수")
	require.NoError(t, err)
	assert.Equal(t, ledger.TradeSideBuy, side)

	_, err = sideFromCode("", "???")
	require.Error(t, err)
}

func TestHasMorePages(t *testing.T) {
	assert.False(t, hasMorePages(""))
	assert.False(t, hasMorePages("D"))
	assert.False(t, hasMorePages("E"))
	assert.True(t, hasMorePages("F"))
	assert.True(t, hasMorePages("M"))
}

func TestTradePayloadToExecution(t *testing.T) {
	payload := tradePayload{
		OrderDate:   "20260202",
		OrderBranch: "00950",
		OrderNumber: "0000117057",
		StockCode:   "AAPL",
		StockName:   "APPLE INC",
		SideCode:    "02",
		OrderTime:   "223015",
		FilledQty:   "10",
		FilledPrice: "182.5200",
	}

	trade, err := payload.toExecution("NASD")
	require.NoError(t, err)

	assert.Equal(t, "20260202-00950-0000117057", trade.OrderNo)
	assert.Equal(t, ledger.TradeSideBuy, trade.Side)
	assert.Equal(t, ledger.CreditClassCash, trade.CrdClass)
	assert.Equal(t, "2026-02-02", trade.TradeDate.Format(ledger.DateLayout))
	assert.EqualValues(t, 10, trade.Quantity)
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("182.52")))
	assert.Equal(t, "USD", trade.Currency)
	assert.Equal(t, "NASD", trade.ExchangeCode)
}

func TestHoldingPayloadToHolding(t *testing.T) {
	day, _ := time.Parse(ledger.DateLayout, "2026-02-02")
	payload := holdingPayload{
		StockCode:    "NVDA",
		StockName:    "NVIDIA CORP",
		Quantity:     "25",
		AvgPrice:     "120.5000",
		CurrentPrice: "131.2500",
		LoanTypeCode: "00",
		MarketValue:  "3281.25",
		PurchaseAmt:  "3012.50",
	}

	h, err := payload.toHolding(day, "NASD", "USD")
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditClassCash, h.CrdClass)
	assert.EqualValues(t, 25, h.Quantity)
	assert.True(t, h.MarketValue.Equal(decimal.RequireFromString("3281.25")))
	assert.Empty(t, h.LoanDate)
}

// newTestClient points a client at a stub server with a pre-seeded token so
// requests skip the oauth round trip.
func newTestClient(serverURL string, tokenPath string) *Client {
	client := NewClient(config.KISConfig{
		BaseURL:            serverURL,
		AppKey:             "key",
		AppSecret:          "secret",
		AccountNo:          "12345678",
		AccountProductCode: "01",
		TokenCachePath:     tokenPath,
		RateInterval:       0,
	}, testLogger())
	client.accessToken = "test-token"
	client.tokenExpired = time.Now().Add(time.Hour)
	return client
}

func TestHoldingsSkipsEmptyExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("authorization"))
		assert.Equal(t, "TTTS3012R", r.Header.Get("tr_id"))

		if r.URL.Query().Get("OVRS_EXCG_CD") != "NASD" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rt_cd": "7", "msg_cd": "MCA00000", "msg1": "No data found",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rt_cd": "0",
			"output1": []map[string]string{{
				"ovrs_pdno":          "AAPL",
				"ovrs_item_name":     "APPLE INC",
				"ovrs_cblc_qty":      "10",
				"pchs_avg_pric":      "180.00",
				"now_pric2":          "182.52",
				"ovrs_stck_evlu_amt": "1825.20",
				"frcr_pchs_amt1":     "1800.00",
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, t.TempDir()+"/token.json")
	holdings, err := client.Holdings(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].StockCode)
	assert.Equal(t, "USD", holdings[0].Currency)
	assert.Equal(t, "NASD", holdings[0].ExchangeCode)
}

func TestTradeHistoryPagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("OVRS_EXCG_CD") != "NASD" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rt_cd": "7", "msg_cd": "MCA00000", "msg1": "no data",
			})
			return
		}
		calls++
		trade := map[string]string{
			"ord_dt": "20260202", "ord_gno_brno": "00950", "odno": "1",
			"pdno": "AAPL", "sll_buy_dvsn_cd": "02",
			"ft_ccld_qty": "10", "ft_ccld_unpr3": "180.00",
		}
		if calls == 1 {
			w.Header().Set("tr_cont", "M")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"rt_cd": "0", "output": []map[string]string{trade},
				"ctx_area_fk200": "fk", "ctx_area_nk200": "nk",
			})
			return
		}
		assert.Equal(t, "fk", r.URL.Query().Get("CTX_AREA_FK200"))
		trade["odno"] = "2"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rt_cd": "0", "output": []map[string]string{trade},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, t.TempDir()+"/token.json")
	from, _ := time.Parse(ledger.DateLayout, "2026-02-02")
	trades, err := client.TradeHistory(context.Background(), from, from)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "20260202-00950-1", trades[0].OrderNo)
	assert.Equal(t, "20260202-00950-2", trades[1].OrderNo)
}
