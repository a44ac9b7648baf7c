package marketindex

import (
	"time"

	"github.com/shopspring/decimal"
)

// Benchmark names an index series tracked for comparison.
type Benchmark string

const (
	BenchmarkSP500  Benchmark = "SP500"
	BenchmarkNasdaq Benchmark = "NASDAQ"
)

// Close is one trading day's closing value of a benchmark.
type Close struct {
	Date  time.Time
	Value decimal.Decimal
}

// IndexPoint is one trading day of benchmark closes with day-over-day
// changes. Either side may be absent when the source had no data.
type IndexPoint struct {
	IndexDate       time.Time        `json:"index_date"`
	SP500Close      *decimal.Decimal `json:"sp500_close,omitempty"`
	SP500Change     *decimal.Decimal `json:"sp500_change,omitempty"`
	SP500ChangePct  *decimal.Decimal `json:"sp500_change_pct,omitempty"`
	NasdaqClose     *decimal.Decimal `json:"nasdaq_close,omitempty"`
	NasdaqChange    *decimal.Decimal `json:"nasdaq_change,omitempty"`
	NasdaqChangePct *decimal.Decimal `json:"nasdaq_change_pct,omitempty"`
}
