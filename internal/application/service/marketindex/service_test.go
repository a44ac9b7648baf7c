package marketindex

import (
	"context"
	"errors"
	"testing"
	"time"

	ledger "main/internal/domain/entity/ledger"
	entity "main/internal/domain/entity/marketindex"

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

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func closeAt(date, value string) entity.Close {
	return entity.Close{Date: day(date), Value: dec(value)}
}

type fakeProvider struct {
	closes map[entity.Benchmark][]entity.Close
	err    error
}

func (f *fakeProvider) DailyCloses(_ context.Context, benchmark entity.Benchmark, from, to time.Time) ([]entity.Close, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.Close
	for _, c := range f.closes[benchmark] {
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeIndexRepo struct {
	points map[string]entity.IndexPoint
}

func (f *fakeIndexRepo) Upsert(_ context.Context, points []entity.IndexPoint) error {
	if f.points == nil {
		f.points = make(map[string]entity.IndexPoint)
	}
	for _, p := range points {
		f.points[p.IndexDate.Format(ledger.DateLayout)] = p
	}
	return nil
}

func (f *fakeIndexRepo) GetRange(_ context.Context, from, to time.Time) ([]entity.IndexPoint, error) {
	var out []entity.IndexPoint
	for _, p := range f.points {
		if p.IndexDate.Before(from) || p.IndexDate.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestMergeClosesComputesChanges(t *testing.T) {
	sp500 := []entity.Close{
		closeAt("2026-02-02", "5000"),
		closeAt("2026-02-03", "5100"),
	}
	nasdaq := []entity.Close{
		closeAt("2026-02-02", "16000"),
		closeAt("2026-02-03", "15840"),
	}

	points := mergeCloses(sp500, nasdaq, day("2026-02-03"), day("2026-02-03"))
	require.Len(t, points, 1)

	p := points[0]
	require.NotNil(t, p.SP500Close)
	assert.True(t, p.SP500Close.Equal(dec("5100")))
	require.NotNil(t, p.SP500Change)
	assert.True(t, p.SP500Change.Equal(dec("100")))
	require.NotNil(t, p.SP500ChangePct)
	assert.True(t, p.SP500ChangePct.Equal(dec("2")))

	require.NotNil(t, p.NasdaqChange)
	assert.True(t, p.NasdaqChange.Equal(dec("-160")))
	require.NotNil(t, p.NasdaqChangePct)
	assert.True(t, p.NasdaqChangePct.Equal(dec("-1")))
}

func TestMergeClosesFirstDayHasNoChange(t *testing.T) {
	sp500 := []entity.Close{closeAt("2026-02-02", "5000")}

	points := mergeCloses(sp500, nil, day("2026-02-02"), day("2026-02-02"))
	require.Len(t, points, 1)
	require.NotNil(t, points[0].SP500Close)
	assert.Nil(t, points[0].SP500Change)
	assert.Nil(t, points[0].NasdaqClose)
}

func TestMergeClosesHandsOneSidedDays(t *testing.T) {
	// Nasdaq missing one trading day: its change skips to the prior close it
	// actually has.
	sp500 := []entity.Close{
		closeAt("2026-02-02", "5000"),
		closeAt("2026-02-03", "5100"),
		closeAt("2026-02-04", "5202"),
	}
	nasdaq := []entity.Close{
		closeAt("2026-02-02", "16000"),
		closeAt("2026-02-04", "16320"),
	}

	points := mergeCloses(sp500, nasdaq, day("2026-02-02"), day("2026-02-04"))
	require.Len(t, points, 3)

	mid := points[1]
	assert.Equal(t, day("2026-02-03"), mid.IndexDate)
	assert.Nil(t, mid.NasdaqClose)

	last := points[2]
	require.NotNil(t, last.NasdaqChange)
	assert.True(t, last.NasdaqChange.Equal(dec("320")))
	require.NotNil(t, last.NasdaqChangePct)
	assert.True(t, last.NasdaqChangePct.Equal(dec("2")))
}

func TestSyncRangeUsesPriorCloseOutsideWindow(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{closes: map[entity.Benchmark][]entity.Close{
		entity.BenchmarkSP500: {
			closeAt("2026-01-30", "5000"), // friday before the window
			closeAt("2026-02-02", "5050"),
		},
		entity.BenchmarkNasdaq: {
			closeAt("2026-01-30", "16000"),
			closeAt("2026-02-02", "16160"),
		},
	}}
	repo := &fakeIndexRepo{}
	svc := NewService(provider, repo, testLogger())

	count, err := svc.SyncRange(ctx, day("2026-02-02"), day("2026-02-02"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	p, ok := repo.points["2026-02-02"]
	require.True(t, ok)
	require.NotNil(t, p.SP500Change)
	assert.True(t, p.SP500Change.Equal(dec("50")))
	require.NotNil(t, p.SP500ChangePct)
	assert.True(t, p.SP500ChangePct.Equal(dec("1")))

	// The padding day itself is not written.
	_, ok = repo.points["2026-01-30"]
	assert.False(t, ok)
}

func TestSyncRangeProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream 503")}
	svc := NewService(provider, &fakeIndexRepo{}, testLogger())

	_, err := svc.SyncRange(context.Background(), day("2026-02-02"), day("2026-02-02"))
	require.Error(t, err)
}

func TestSyncRangeEmptyRange(t *testing.T) {
	provider := &fakeProvider{closes: map[entity.Benchmark][]entity.Close{}}
	repo := &fakeIndexRepo{}
	svc := NewService(provider, repo, testLogger())

	count, err := svc.SyncRange(context.Background(), day("2026-02-02"), day("2026-02-02"))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, repo.points)
}
