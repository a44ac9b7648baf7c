package interfaces

import (
	"context"
	"time"

	marketindex "main/internal/domain/entity/marketindex"
)

// IndexRepository persists the benchmark comparison series.
type IndexRepository interface {
	Upsert(ctx context.Context, points []marketindex.IndexPoint) error
	GetRange(ctx context.Context, from, to time.Time) ([]marketindex.IndexPoint, error)
}

// IndexProvider fetches daily closes for a benchmark from an external
// market data source.
type IndexProvider interface {
	DailyCloses(ctx context.Context, benchmark marketindex.Benchmark, from, to time.Time) ([]marketindex.Close, error)
}
