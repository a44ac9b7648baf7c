package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledger "main/internal/domain/entity/ledger"
	interfaces "main/internal/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrNilBroker = errors.New("broker client is nil")

// Service pulls trade executions and holdings from the broker and writes
// them into the store tables. Broker data is authoritative: trades are
// append-only with duplicates skipped, holdings replace the whole day.
type Service struct {
	broker   interfaces.BrokerClient
	trades   interfaces.TradeHistoryRepository
	holdings interfaces.HoldingsRepository
	summary  interfaces.AccountSummaryRepository
	logger   *logrus.Entry
}

func NewService(
	broker interfaces.BrokerClient,
	trades interfaces.TradeHistoryRepository,
	holdings interfaces.HoldingsRepository,
	summary interfaces.AccountSummaryRepository,
	logger *logrus.Logger,
) *Service {
	return &Service{
		broker:   broker,
		trades:   trades,
		holdings: holdings,
		summary:  summary,
		logger:   logger.WithField("component", "ingest"),
	}
}

// SyncTrades fetches executions with trade dates in [from, to] and appends
// the ones not seen before. Duplicate order numbers are counted and skipped;
// a broker failure aborts before any write.
func (s *Service) SyncTrades(ctx context.Context, from, to time.Time) (int, error) {
	if s.broker == nil {
		return 0, ErrNilBroker
	}

	fetched, err := s.broker.TradeHistory(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch trade history: %w", err)
	}

	valid := make([]ledger.TradeExecution, 0, len(fetched))
	for _, t := range fetched {
		if t.Quantity == 0 {
			continue
		}
		if !t.Side.IsValid() {
			return 0, fmt.Errorf("trade %s: invalid side %q", t.OrderNo, t.Side)
		}
		t.TradeDate = ledger.Day(t.TradeDate)
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		s.logger.Info("no new trades reported")
		return 0, nil
	}

	inserted, err := s.trades.AddTrades(ctx, valid)
	if err != nil {
		return 0, fmt.Errorf("store trades: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"fetched":  len(fetched),
		"inserted": inserted,
		"skipped":  len(valid) - inserted,
	}).Info("trade history synced")
	return inserted, nil
}

// SyncHoldings fetches the day's holdings snapshot and replaces any existing
// rows for the date. Zero-quantity rows are dropped.
func (s *Service) SyncHoldings(ctx context.Context, snapshotDate time.Time) (int, error) {
	if s.broker == nil {
		return 0, ErrNilBroker
	}

	fetched, err := s.broker.Holdings(ctx, snapshotDate)
	if err != nil {
		return 0, fmt.Errorf("fetch holdings: %w", err)
	}

	day := ledger.Day(snapshotDate)
	rows := make([]ledger.Holding, 0, len(fetched))
	for _, h := range fetched {
		if h.Quantity == 0 {
			continue
		}
		h.SnapshotDate = day
		rows = append(rows, h)
	}

	if err := s.holdings.ReplaceForDate(ctx, day, rows); err != nil {
		return 0, fmt.Errorf("store holdings: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"date":     day.Format(ledger.DateLayout),
		"holdings": len(rows),
	}).Info("holdings synced")
	return len(rows), nil
}

// SyncAccountSummary aggregates the day's holdings into an account rollup
// and merges in the broker-reported cash balance and cash flows.
func (s *Service) SyncAccountSummary(ctx context.Context, snapshotDate time.Time) error {
	if s.broker == nil {
		return ErrNilBroker
	}

	day := ledger.Day(snapshotDate)
	holdings, err := s.holdings.GetByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	stockValue := decimal.Zero
	costBasis := decimal.Zero
	for _, h := range holdings {
		stockValue = stockValue.Add(h.MarketValue)
		costBasis = costBasis.Add(h.PurchaseAmount)
	}

	summary := &ledger.AccountSummary{
		SnapshotDate: day,
		StockValue:   stockValue,
		CostBasis:    costBasis,
	}

	broker, err := s.broker.AccountSummary(ctx, day)
	if err != nil {
		return fmt.Errorf("fetch account summary: %w", err)
	}
	if broker != nil {
		summary.CashBalance = broker.CashBalance
		summary.DailyDeposit = broker.DailyDeposit
		summary.DailyWithdraw = broker.DailyWithdraw
	}
	summary.TotalValue = summary.StockValue.Add(summary.CashBalance)

	if err := s.summary.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("store account summary: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"date":        day.Format(ledger.DateLayout),
		"stock_value": summary.StockValue.String(),
		"cash":        summary.CashBalance.String(),
	}).Info("account summary synced")
	return nil
}
