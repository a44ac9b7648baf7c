package dailysync

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledger "main/internal/domain/entity/ledger"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Stage names recorded in the sync run table, in pipeline order.
const (
	StageTrades        = "trades"
	StageHoldings      = "holdings"
	StageSummary       = "account_summary"
	StageLots          = "lot_rebuild"
	StageLotMetrics    = "lot_metrics"
	StagePortfolio     = "portfolio_snapshot"
	StageDailySnapshot = "daily_snapshot"
	StageMarketIndex   = "market_index"
)

// Ingestor pulls broker data into the store.
type Ingestor interface {
	SyncTrades(ctx context.Context, from, to time.Time) (int, error)
	SyncHoldings(ctx context.Context, snapshotDate time.Time) (int, error)
	SyncAccountSummary(ctx context.Context, snapshotDate time.Time) error
}

// LotLedger rebuilds lots and refreshes their mark-to-market metrics.
type LotLedger interface {
	Rebuild(ctx context.Context) (int, error)
	RefreshMetrics(ctx context.Context, asOf time.Time) (int, error)
}

// SnapshotBuilder derives the portfolio snapshot tables for a date.
type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, date time.Time) (int, error)
	BuildDailySnapshot(ctx context.Context, date time.Time) error
}

// IndexSyncer refreshes the benchmark comparison series.
type IndexSyncer interface {
	SyncRange(ctx context.Context, from, to time.Time) (int, error)
}

// Service runs the daily pipeline. Stage order matters: lots derive from
// trades, metrics need holdings prices, snapshots need both. Every stage
// outcome is recorded so reruns and backfills can see what completed.
type Service struct {
	ingest    Ingestor
	lots      LotLedger
	portfolio SnapshotBuilder
	index     IndexSyncer
	runs      interfaces.SyncRunRepository
	logger    *logrus.Entry
}

func NewService(
	ingest Ingestor,
	lots LotLedger,
	portfolio SnapshotBuilder,
	index IndexSyncer,
	runs interfaces.SyncRunRepository,
	logger *logrus.Logger,
) *Service {
	return &Service{
		ingest:    ingest,
		lots:      lots,
		portfolio: portfolio,
		index:     index,
		runs:      runs,
		logger:    logger.WithField("component", "daily_sync"),
	}
}

// Run executes the full pipeline for one target date. Re-running a date is
// safe: ingestion skips duplicates, the lot ledger is re-derived from
// scratch, and snapshots replace their date's rows.
//
// An empty portfolio is not a failure: the per-stock snapshot is skipped and
// the daily rollup still writes a zero row. A benchmark fetch failure is
// logged and recorded but does not fail the run.
func (s *Service) Run(ctx context.Context, targetDate time.Time) error {
	day := ledger.Day(targetDate)
	runID := uuid.New()
	logger := s.logger.WithFields(logrus.Fields{
		"run_id": runID.String(),
		"date":   day.Format(ledger.DateLayout),
	})
	logger.Info("daily sync started")

	err := s.stage(ctx, runID, day, StageTrades, func(ctx context.Context) error {
		_, err := s.ingest.SyncTrades(ctx, day, day)
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageHoldings, func(ctx context.Context) error {
		_, err := s.ingest.SyncHoldings(ctx, day)
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageSummary, func(ctx context.Context) error {
		return s.ingest.SyncAccountSummary(ctx, day)
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageLots, func(ctx context.Context) error {
		_, err := s.lots.Rebuild(ctx)
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageLotMetrics, func(ctx context.Context) error {
		_, err := s.lots.RefreshMetrics(ctx, day)
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StagePortfolio, func(ctx context.Context) error {
		_, err := s.portfolio.BuildSnapshot(ctx, day)
		if errors.Is(err, ledger.ErrNoOpenPositions) {
			logger.Info("no open positions, skipping portfolio snapshot")
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageDailySnapshot, func(ctx context.Context) error {
		return s.portfolio.BuildDailySnapshot(ctx, day)
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, runID, day, StageMarketIndex, func(ctx context.Context) error {
		_, err := s.index.SyncRange(ctx, day, day)
		return err
	})
	if err != nil {
		logger.WithError(err).Warn("benchmark sync failed, portfolio data is complete")
	}

	logger.Info("daily sync finished")
	return nil
}

// Backfill runs the pipeline for every date in [start, end] in order,
// skipping dates whose daily snapshot stage already completed. The range
// includes weekends; those dates produce zero-trade runs, which keeps the
// daily series gap-free.
func (s *Service) Backfill(ctx context.Context, start, end time.Time) error {
	start, end = ledger.Day(start), ledger.Day(end)
	if end.Before(start) {
		return fmt.Errorf("backfill range inverted: %s after %s",
			start.Format(ledger.DateLayout), end.Format(ledger.DateLayout))
	}

	done, err := s.runs.CompletedDates(ctx, StageDailySnapshot, start, end)
	if err != nil {
		return fmt.Errorf("load completed dates: %w", err)
	}
	completed := make(map[time.Time]bool, len(done))
	for _, d := range done {
		completed[ledger.Day(d)] = true
	}

	ran := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if completed[day] {
			continue
		}
		if err := s.Run(ctx, day); err != nil {
			return fmt.Errorf("backfill %s: %w", day.Format(ledger.DateLayout), err)
		}
		ran++
	}

	s.logger.WithFields(logrus.Fields{
		"from":    start.Format(ledger.DateLayout),
		"to":      end.Format(ledger.DateLayout),
		"ran":     ran,
		"skipped": len(done),
	}).Info("backfill finished")
	return nil
}

// stage runs one pipeline step and records its outcome. The failure record
// is written best-effort: a run store error must not mask the stage error.
func (s *Service) stage(ctx context.Context, runID uuid.UUID, day time.Time, name string, fn func(context.Context) error) error {
	stageErr := fn(ctx)

	run := &ledger.SyncStageRun{
		RunID:      runID,
		TargetDate: day,
		Stage:      name,
		Status:     ledger.StageStatusOK,
		FinishedAt: time.Now().UTC(),
	}
	if stageErr != nil {
		run.Status = ledger.StageStatusFailed
		run.Detail = stageErr.Error()
	}
	if err := s.runs.RecordStage(ctx, run); err != nil {
		s.logger.WithError(err).WithField("stage", name).Error("failed to record stage outcome")
	}

	if stageErr != nil {
		return fmt.Errorf("stage %s: %w", name, stageErr)
	}
	return nil
}
