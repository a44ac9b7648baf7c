package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"main/internal/application/service/lots"
	ledger "main/internal/domain/entity/ledger"
	interfaces "main/internal/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// Service derives the dated portfolio snapshot tables from the lot ledger and
// the account summary. Snapshots are wholly re-derived per date, so re-running
// a date replaces rather than accumulates.
type Service struct {
	trades    interfaces.TradeHistoryRepository
	lots      interfaces.LotRepository
	summary   interfaces.AccountSummaryRepository
	snapshots interfaces.SnapshotRepository
	logger    *logrus.Entry
}

func NewService(
	trades interfaces.TradeHistoryRepository,
	lotRepo interfaces.LotRepository,
	summary interfaces.AccountSummaryRepository,
	snapshots interfaces.SnapshotRepository,
	logger *logrus.Logger,
) *Service {
	return &Service{
		trades:    trades,
		lots:      lotRepo,
		summary:   summary,
		snapshots: snapshots,
		logger:    logger.WithField("component", "portfolio"),
	}
}

// BuildSnapshot aggregates lots open as of the date into per-stock positions
// and replaces the date's snapshot rows. Returns ledger.ErrNoOpenPositions
// when the ledger has no open lots for the date; callers decide whether that
// is fatal.
func (s *Service) BuildSnapshot(ctx context.Context, date time.Time) (int, error) {
	day := ledger.Day(date)
	open, err := s.lots.GetOpenAsOf(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load open lots: %w", err)
	}
	if len(open) == 0 {
		// A re-run still owns the date: rows a previous run wrote for a
		// position that has since left the re-derived ledger must go.
		if err := s.snapshots.ReplacePositions(ctx, day, nil); err != nil {
			return 0, fmt.Errorf("clear portfolio snapshot: %w", err)
		}
		return 0, ledger.ErrNoOpenPositions
	}

	rows := aggregatePositions(day, open)
	if err := s.snapshots.ReplacePositions(ctx, day, rows); err != nil {
		return 0, fmt.Errorf("store portfolio snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"date":      day.Format(ledger.DateLayout),
		"positions": len(rows),
	}).Info("portfolio snapshot built")
	return len(rows), nil
}

// aggregatePositions folds open lots into one row per stock and credit class.
// Lots of the same position but different loan dates merge into one row with
// a blended cost basis.
func aggregatePositions(date time.Time, open []ledger.Lot) []ledger.PortfolioPosition {
	type posKey struct {
		stockCode string
		crdClass  ledger.CreditClass
	}
	byPos := make(map[posKey]*ledger.PortfolioPosition)
	for _, lot := range open {
		key := posKey{stockCode: lot.StockCode, crdClass: lot.CrdClass}
		row, ok := byPos[key]
		if !ok {
			row = &ledger.PortfolioPosition{
				SnapshotDate: date,
				StockCode:    lot.StockCode,
				StockName:    lot.StockName,
				CrdClass:     lot.CrdClass,
				Currency:     lot.Currency,
				ExchangeCode: lot.ExchangeCode,
			}
			byPos[key] = row
		}
		row.TotalQuantity += lot.NetQuantity
		row.TotalCost = row.TotalCost.Add(lot.TotalCost)
		row.UnrealizedPnL = row.UnrealizedPnL.Add(lot.UnrealizedPnL)
		row.MarketValue = row.MarketValue.Add(lot.CurrentPrice.Mul(decimal.NewFromInt(lot.NetQuantity)))
		// lots of one position share a price series, any lot's quote works
		row.CurrentPrice = lot.CurrentPrice
		if lot.PriceStale {
			row.PriceStale = true
		}
	}

	total := decimal.Zero
	rows := make([]ledger.PortfolioPosition, 0, len(byPos))
	for _, row := range byPos {
		total = total.Add(row.MarketValue)
		rows = append(rows, *row)
	}

	for i := range rows {
		row := &rows[i]
		row.TotalPortfolioValue = total
		if row.TotalQuantity != 0 {
			row.AvgCostBasis = row.TotalCost.Div(decimal.NewFromInt(row.TotalQuantity))
		}
		if !row.TotalCost.IsZero() {
			row.UnrealizedReturnPct = row.UnrealizedPnL.Div(row.TotalCost.Abs()).Mul(hundred)
		}
		if !total.IsZero() {
			row.PortfolioWeightPct = row.MarketValue.Div(total).Mul(hundred)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StockCode != rows[j].StockCode {
			return rows[i].StockCode < rows[j].StockCode
		}
		return rows[i].CrdClass < rows[j].CrdClass
	})
	return rows
}

// BuildDailySnapshot writes the one-row account rollup for the date. Unlike
// the per-stock snapshot, this always writes: a flat or empty account still
// produces a row so the daily series stays gap-free.
func (s *Service) BuildDailySnapshot(ctx context.Context, date time.Time) error {
	day := ledger.Day(date)
	snap := &ledger.DailySnapshot{SnapshotDate: day}

	summary, err := s.summary.Get(ctx, day)
	if err != nil {
		return fmt.Errorf("load account summary: %w", err)
	}
	if summary != nil {
		snap.TotalAssetValue = summary.TotalValue
		snap.StockValue = summary.StockValue
		snap.CashBalance = summary.CashBalance
		snap.CostBasis = summary.CostBasis
		snap.DailyDeposit = summary.DailyDeposit
		snap.DailyWithdraw = summary.DailyWithdraw
	}

	dayTrades, err := s.trades.GetByDate(ctx, day)
	if err != nil {
		return fmt.Errorf("load day trades: %w", err)
	}
	for _, t := range dayTrades {
		switch t.Side {
		case ledger.TradeSideBuy:
			snap.DailyBuyAmount = snap.DailyBuyAmount.Add(t.Notional())
		case ledger.TradeSideSell:
			snap.DailySellAmount = snap.DailySellAmount.Add(t.Notional())
		}
	}

	// Stored lots carry cumulative realized figures that include reductions
	// after the date, so the as-of number is re-derived by replaying only
	// the executions up to the date.
	history, err := s.trades.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load trade history: %w", err)
	}
	asOf := make([]ledger.TradeExecution, 0, len(history))
	for _, t := range history {
		if ledger.Day(t.TradeDate).After(day) {
			continue
		}
		asOf = append(asOf, t)
	}
	derived, err := lots.BuildLots(asOf)
	if err != nil {
		return fmt.Errorf("replay trades: %w", err)
	}
	for _, lot := range derived {
		snap.RealizedPnL = snap.RealizedPnL.Add(lot.RealizedPnL)
	}

	open, err := s.lots.GetOpenAsOf(ctx, day)
	if err != nil {
		return fmt.Errorf("load open lots: %w", err)
	}
	for _, lot := range open {
		snap.UnrealizedPnL = snap.UnrealizedPnL.Add(lot.UnrealizedPnL)
	}

	if err := s.snapshots.UpsertDaily(ctx, snap); err != nil {
		return fmt.Errorf("store daily snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"date":        day.Format(ledger.DateLayout),
		"total_value": snap.TotalAssetValue.String(),
		"realized":    snap.RealizedPnL.String(),
	}).Info("daily snapshot built")
	return nil
}
