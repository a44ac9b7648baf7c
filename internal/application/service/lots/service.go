package lots

import (
	"context"
	"fmt"
	"time"

	interfaces "main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Service owns the lot ledger. It rebuilds lots from the trade history store
// and refreshes mark-to-market metrics; nothing else writes lot rows.
type Service struct {
	trades   interfaces.TradeHistoryRepository
	holdings interfaces.HoldingsRepository
	lots     interfaces.LotRepository
	logger   *logrus.Entry
}

func NewService(
	trades interfaces.TradeHistoryRepository,
	holdings interfaces.HoldingsRepository,
	lotRepo interfaces.LotRepository,
	logger *logrus.Logger,
) *Service {
	return &Service{
		trades:   trades,
		holdings: holdings,
		lots:     lotRepo,
		logger:   logger.WithField("component", "lot_ledger"),
	}
}

// Rebuild re-derives the whole lot ledger from the trade history store and
// replaces it transactionally. Re-deriving from the immutable stream is what
// makes a re-run for an already processed date reproduce identical state.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	trades, err := s.trades.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load trade history: %w", err)
	}

	built, err := BuildLots(trades)
	if err != nil {
		return 0, err
	}

	if err := s.lots.ReplaceAll(ctx, built); err != nil {
		return 0, fmt.Errorf("replace lot ledger: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"trades": len(trades),
		"lots":   len(built),
	}).Info("lot ledger rebuilt")
	return len(built), nil
}

// RefreshMetrics updates unrealized P&L, holding days and current price for
// every open lot, not only lots touched by new trades. Positions without a
// quote for the date carry their last known price forward and are flagged
// stale.
func (s *Service) RefreshMetrics(ctx context.Context, asOf time.Time) (int, error) {
	open, err := s.lots.GetOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("load open lots: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	prices, err := s.holdings.PricesAsOf(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("load prices: %w", err)
	}

	metrics := ApplyMetrics(open, prices, asOf)
	if err := s.lots.UpdateMetrics(ctx, metrics); err != nil {
		return 0, fmt.Errorf("update lot metrics: %w", err)
	}

	stale := 0
	for _, m := range metrics {
		if m.PriceStale {
			stale++
		}
	}
	if stale > 0 {
		s.logger.WithField("stale", stale).Warn("open lots carrying forward stale prices")
	}
	return len(metrics), nil
}
