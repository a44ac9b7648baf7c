package marketindex

import (
	"context"
	"fmt"
	"sort"
	"time"

	ledger "main/internal/domain/entity/ledger"
	entity "main/internal/domain/entity/marketindex"
	interfaces "main/internal/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// padDays extends the fetch window backwards so the first requested day has a
// prior close to compute its change against, across weekends and holidays.
const padDays = 7

// Service maintains the benchmark comparison series. Both benchmarks are
// fetched concurrently and merged into one row per trading day.
type Service struct {
	provider interfaces.IndexProvider
	repo     interfaces.IndexRepository
	logger   *logrus.Entry
}

func NewService(provider interfaces.IndexProvider, repo interfaces.IndexRepository, logger *logrus.Logger) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		logger:   logger.WithField("component", "market_index"),
	}
}

// SyncRange fetches closes for [from, to], computes day-over-day changes
// against each day's prior close, and upserts the rows. Days before from that
// were fetched only for change computation are not written.
func (s *Service) SyncRange(ctx context.Context, from, to time.Time) (int, error) {
	from, to = ledger.Day(from), ledger.Day(to)
	fetchFrom := from.AddDate(0, 0, -padDays)

	var sp500, nasdaq []entity.Close
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sp500, err = s.provider.DailyCloses(gctx, entity.BenchmarkSP500, fetchFrom, to)
		if err != nil {
			return fmt.Errorf("fetch %s closes: %w", entity.BenchmarkSP500, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		nasdaq, err = s.provider.DailyCloses(gctx, entity.BenchmarkNasdaq, fetchFrom, to)
		if err != nil {
			return fmt.Errorf("fetch %s closes: %w", entity.BenchmarkNasdaq, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	points := mergeCloses(sp500, nasdaq, from, to)
	if len(points) == 0 {
		s.logger.WithFields(logrus.Fields{
			"from": from.Format(ledger.DateLayout),
			"to":   to.Format(ledger.DateLayout),
		}).Warn("no benchmark closes in range")
		return 0, nil
	}

	if err := s.repo.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("store index points: %w", err)
	}

	s.logger.WithField("points", len(points)).Info("benchmark series synced")
	return len(points), nil
}

// mergeCloses joins the two benchmark series on trading date and computes
// changes against each series' own previous close, which may fall outside
// [from, to]. Only dates within the window are returned.
func mergeCloses(sp500, nasdaq []entity.Close, from, to time.Time) []entity.IndexPoint {
	byDate := make(map[time.Time]*entity.IndexPoint)
	point := func(date time.Time) *entity.IndexPoint {
		day := ledger.Day(date)
		p, ok := byDate[day]
		if !ok {
			p = &entity.IndexPoint{IndexDate: day}
			byDate[day] = p
		}
		return p
	}

	sortCloses(sp500)
	sortCloses(nasdaq)

	for i, c := range sp500 {
		p := point(c.Date)
		v := c.Value
		p.SP500Close = &v
		if i > 0 {
			change, pct := dayChange(sp500[i-1].Value, c.Value)
			p.SP500Change, p.SP500ChangePct = change, pct
		}
	}
	for i, c := range nasdaq {
		p := point(c.Date)
		v := c.Value
		p.NasdaqClose = &v
		if i > 0 {
			change, pct := dayChange(nasdaq[i-1].Value, c.Value)
			p.NasdaqChange, p.NasdaqChangePct = change, pct
		}
	}

	points := make([]entity.IndexPoint, 0, len(byDate))
	for date, p := range byDate {
		if date.Before(from) || date.After(to) {
			continue
		}
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].IndexDate.Before(points[j].IndexDate)
	})
	return points
}

func sortCloses(closes []entity.Close) {
	sort.Slice(closes, func(i, j int) bool {
		return closes[i].Date.Before(closes[j].Date)
	})
}

func dayChange(prev, current decimal.Decimal) (*decimal.Decimal, *decimal.Decimal) {
	change := current.Sub(prev)
	if prev.IsZero() {
		return &change, nil
	}
	pct := change.Div(prev).Mul(hundred)
	return &change, &pct
}
