package lots

import (
	"context"
	"testing"
	"time"

	ledger "main/internal/domain/entity/ledger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTradeRepo struct {
	trades []ledger.TradeExecution
}

func (f *fakeTradeRepo) AddTrade(_ context.Context, trade *ledger.TradeExecution) error {
	for _, t := range f.trades {
		if t.OrderNo == trade.OrderNo {
			return ledger.ErrDuplicateOrder
		}
	}
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeTradeRepo) AddTrades(ctx context.Context, trades []ledger.TradeExecution) (int, error) {
	inserted := 0
	for i := range trades {
		if err := f.AddTrade(ctx, &trades[i]); err == nil {
			inserted++
		}
	}
	return inserted, nil
}

func (f *fakeTradeRepo) GetAll(context.Context) ([]ledger.TradeExecution, error) {
	return append([]ledger.TradeExecution(nil), f.trades...), nil
}

func (f *fakeTradeRepo) GetByDate(_ context.Context, date time.Time) ([]ledger.TradeExecution, error) {
	var out []ledger.TradeExecution
	for _, t := range f.trades {
		if ledger.SameDay(t.TradeDate, date) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeHoldingsRepo struct {
	holdings map[string][]ledger.Holding // keyed by date string
}

func (f *fakeHoldingsRepo) ReplaceForDate(_ context.Context, date time.Time, holdings []ledger.Holding) error {
	if f.holdings == nil {
		f.holdings = make(map[string][]ledger.Holding)
	}
	f.holdings[ledger.Day(date).Format(ledger.DateLayout)] = append([]ledger.Holding(nil), holdings...)
	return nil
}

func (f *fakeHoldingsRepo) GetByDate(_ context.Context, date time.Time) ([]ledger.Holding, error) {
	return f.holdings[ledger.Day(date).Format(ledger.DateLayout)], nil
}

func (f *fakeHoldingsRepo) PricesAsOf(_ context.Context, date time.Time) (map[ledger.PriceKey]ledger.PriceQuote, error) {
	prices := make(map[ledger.PriceKey]ledger.PriceQuote)
	for ds, rows := range f.holdings {
		d, _ := time.Parse(ledger.DateLayout, ds)
		if d.After(ledger.Day(date)) {
			continue
		}
		for _, h := range rows {
			key := ledger.PriceKey{StockCode: h.StockCode, CrdClass: h.CrdClass}
			if prev, ok := prices[key]; !ok || d.After(prev.AsOf) {
				prices[key] = ledger.PriceQuote{Price: h.CurrentPrice, AsOf: d}
			}
		}
	}
	return prices, nil
}

type fakeLotRepo struct {
	lots   []ledger.Lot
	nextID int64
}

func (f *fakeLotRepo) ReplaceAll(_ context.Context, lots []ledger.Lot) error {
	f.lots = nil
	for _, lot := range lots {
		f.nextID++
		lot.ID = f.nextID
		f.lots = append(f.lots, lot)
	}
	return nil
}

func (f *fakeLotRepo) GetAll(context.Context) ([]ledger.Lot, error) {
	return append([]ledger.Lot(nil), f.lots...), nil
}

func (f *fakeLotRepo) GetOpen(context.Context) ([]ledger.Lot, error) {
	var out []ledger.Lot
	for _, lot := range f.lots {
		if !lot.Closed {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeLotRepo) GetOpenAsOf(_ context.Context, date time.Time) ([]ledger.Lot, error) {
	var out []ledger.Lot
	for _, lot := range f.lots {
		if lot.TradeDate.After(ledger.Day(date)) {
			continue
		}
		if lot.OpenAsOf(date) {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeLotRepo) UpdateMetrics(_ context.Context, metrics []ledger.LotMetrics) error {
	for _, m := range metrics {
		for i := range f.lots {
			if f.lots[i].ID == m.LotID {
				f.lots[i].HoldingDays = m.HoldingDays
				f.lots[i].CurrentPrice = m.CurrentPrice
				f.lots[i].PriceStale = m.PriceStale
				f.lots[i].UnrealizedPnL = m.UnrealizedPnL
				f.lots[i].UnrealizedReturnPct = m.UnrealizedReturnPct
			}
		}
	}
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestServiceRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	trades := &fakeTradeRepo{trades: []ledger.TradeExecution{
		trade("AAPL", ledger.TradeSideBuy, "2026-02-02", 100, "10"),
		trade("AAPL", ledger.TradeSideSell, "2026-02-03", 40, "12"),
	}}
	lotRepo := &fakeLotRepo{}
	svc := NewService(trades, &fakeHoldingsRepo{}, lotRepo, testLogger())

	count, err := svc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	first := append([]ledger.Lot(nil), lotRepo.lots...)

	_, err = svc.Rebuild(ctx)
	require.NoError(t, err)

	require.Len(t, lotRepo.lots, len(first))
	for i := range first {
		a, b := first[i], lotRepo.lots[i]
		a.ID, b.ID = 0, 0 // surrogate ids differ between rebuilds
		assert.Equal(t, a, b)
	}
}

func TestServiceRefreshMetricsUsesHoldingsPrices(t *testing.T) {
	ctx := context.Background()
	trades := &fakeTradeRepo{trades: []ledger.TradeExecution{
		trade("AAPL", ledger.TradeSideBuy, "2026-02-02", 100, "10"),
	}}
	holdings := &fakeHoldingsRepo{}
	require.NoError(t, holdings.ReplaceForDate(ctx, day("2026-02-05"), []ledger.Holding{{
		SnapshotDate: day("2026-02-05"),
		StockCode:    "AAPL",
		CrdClass:     ledger.CreditClassCash,
		Quantity:     100,
		CurrentPrice: decimal.RequireFromString("12"),
	}}))
	lotRepo := &fakeLotRepo{}
	svc := NewService(trades, holdings, lotRepo, testLogger())

	_, err := svc.Rebuild(ctx)
	require.NoError(t, err)

	updated, err := svc.RefreshMetrics(ctx, day("2026-02-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	lot := lotRepo.lots[0]
	assertDecimal(t, "12", lot.CurrentPrice)
	assertDecimal(t, "200", lot.UnrealizedPnL)
	assert.Equal(t, 3, lot.HoldingDays)
	assert.False(t, lot.PriceStale)
}

func TestServiceRefreshMetricsNoOpenLots(t *testing.T) {
	svc := NewService(&fakeTradeRepo{}, &fakeHoldingsRepo{}, &fakeLotRepo{}, testLogger())
	updated, err := svc.RefreshMetrics(context.Background(), day("2026-02-05"))
	require.NoError(t, err)
	assert.Zero(t, updated)
}
