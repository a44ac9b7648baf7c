package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	ledger "main/internal/domain/entity/ledger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(ledger.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeBroker struct {
	trades   []ledger.TradeExecution
	holdings []ledger.Holding
	summary  *ledger.AccountSummary
	fetchErr error
}

func (f *fakeBroker) TradeHistory(context.Context, time.Time, time.Time) ([]ledger.TradeExecution, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.trades, nil
}

func (f *fakeBroker) Holdings(context.Context, time.Time) ([]ledger.Holding, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.holdings, nil
}

func (f *fakeBroker) AccountSummary(context.Context, time.Time) (*ledger.AccountSummary, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.summary, nil
}

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
		err := f.AddTrade(ctx, &trades[i])
		if errors.Is(err, ledger.ErrDuplicateOrder) {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (f *fakeTradeRepo) GetAll(context.Context) ([]ledger.TradeExecution, error) {
	return f.trades, nil
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
	byDate map[string][]ledger.Holding
}

func (f *fakeHoldingsRepo) ReplaceForDate(_ context.Context, date time.Time, holdings []ledger.Holding) error {
	if f.byDate == nil {
		f.byDate = make(map[string][]ledger.Holding)
	}
	f.byDate[ledger.Day(date).Format(ledger.DateLayout)] = holdings
	return nil
}

func (f *fakeHoldingsRepo) GetByDate(_ context.Context, date time.Time) ([]ledger.Holding, error) {
	return f.byDate[ledger.Day(date).Format(ledger.DateLayout)], nil
}

func (f *fakeHoldingsRepo) PricesAsOf(context.Context, time.Time) (map[ledger.PriceKey]ledger.PriceQuote, error) {
	return nil, nil
}

type fakeSummaryRepo struct {
	byDate map[string]ledger.AccountSummary
}

func (f *fakeSummaryRepo) Upsert(_ context.Context, summary *ledger.AccountSummary) error {
	if f.byDate == nil {
		f.byDate = make(map[string]ledger.AccountSummary)
	}
	f.byDate[summary.SnapshotDate.Format(ledger.DateLayout)] = *summary
	return nil
}

func (f *fakeSummaryRepo) Get(_ context.Context, date time.Time) (*ledger.AccountSummary, error) {
	s, ok := f.byDate[ledger.Day(date).Format(ledger.DateLayout)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func exec(ordNo string, date string, qty int64) ledger.TradeExecution {
	return ledger.TradeExecution{
		OrderNo:   ordNo,
		StockCode: "AAPL",
		Side:      ledger.TradeSideBuy,
		CrdClass:  ledger.CreditClassCash,
		TradeDate: day(date),
		Quantity:  qty,
		Price:     decimal.RequireFromString("10"),
	}
}

func TestSyncTradesSkipsDuplicatesOnRerun(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{trades: []ledger.TradeExecution{
		exec("20260202-00950-1", "2026-02-02", 10),
		exec("20260202-00950-2", "2026-02-02", 5),
	}}
	repo := &fakeTradeRepo{}
	svc := NewService(broker, repo, &fakeHoldingsRepo{}, &fakeSummaryRepo{}, testLogger())

	inserted, err := svc.SyncTrades(ctx, day("2026-02-02"), day("2026-02-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-running the same date must be a no-op, not an error.
	inserted, err = svc.SyncTrades(ctx, day("2026-02-02"), day("2026-02-02"))
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Len(t, repo.trades, 2)
}

func TestSyncTradesDropsZeroQuantity(t *testing.T) {
	broker := &fakeBroker{trades: []ledger.TradeExecution{
		exec("20260202-00950-1", "2026-02-02", 0),
	}}
	repo := &fakeTradeRepo{}
	svc := NewService(broker, repo, &fakeHoldingsRepo{}, &fakeSummaryRepo{}, testLogger())

	inserted, err := svc.SyncTrades(context.Background(), day("2026-02-02"), day("2026-02-02"))
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, repo.trades)
}

func TestSyncTradesAbortsOnFetchFailure(t *testing.T) {
	broker := &fakeBroker{fetchErr: errors.New("connection refused")}
	repo := &fakeTradeRepo{}
	svc := NewService(broker, repo, &fakeHoldingsRepo{}, &fakeSummaryRepo{}, testLogger())

	_, err := svc.SyncTrades(context.Background(), day("2026-02-02"), day("2026-02-02"))
	require.Error(t, err)
	assert.Empty(t, repo.trades)
}

func TestSyncHoldingsReplacesDate(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{holdings: []ledger.Holding{
		{StockCode: "AAPL", CrdClass: ledger.CreditClassCash, Quantity: 100},
		{StockCode: "MSFT", CrdClass: ledger.CreditClassCash, Quantity: 0}, // dropped
	}}
	repo := &fakeHoldingsRepo{}
	svc := NewService(broker, &fakeTradeRepo{}, repo, &fakeSummaryRepo{}, testLogger())

	count, err := svc.SyncHoldings(ctx, day("2026-02-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second sync with different data fully replaces the day.
	broker.holdings = []ledger.Holding{
		{StockCode: "NVDA", CrdClass: ledger.CreditClassCash, Quantity: 7},
	}
	count, err = svc.SyncHoldings(ctx, day("2026-02-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := repo.GetByDate(ctx, day("2026-02-02"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NVDA", rows[0].StockCode)
}

func TestSyncAccountSummaryAggregatesHoldings(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{summary: &ledger.AccountSummary{
		CashBalance: decimal.RequireFromString("1500"),
	}}
	holdings := &fakeHoldingsRepo{}
	require.NoError(t, holdings.ReplaceForDate(ctx, day("2026-02-02"), []ledger.Holding{
		{StockCode: "AAPL", MarketValue: decimal.RequireFromString("1200"), PurchaseAmount: decimal.RequireFromString("1000")},
		{StockCode: "MSFT", MarketValue: decimal.RequireFromString("800"), PurchaseAmount: decimal.RequireFromString("900")},
	}))
	summaryRepo := &fakeSummaryRepo{}
	svc := NewService(broker, &fakeTradeRepo{}, holdings, summaryRepo, testLogger())

	require.NoError(t, svc.SyncAccountSummary(ctx, day("2026-02-02")))

	got, err := summaryRepo.Get(ctx, day("2026-02-02"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.StockValue.Equal(decimal.RequireFromString("2000")))
	assert.True(t, got.CostBasis.Equal(decimal.RequireFromString("1900")))
	assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("3500")))
}
