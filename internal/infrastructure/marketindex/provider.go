package marketindex

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ledger "main/internal/domain/entity/ledger"
	domain "main/internal/domain/entity/marketindex"

	"github.com/shopspring/decimal"
)

// stooq symbols per benchmark.
var benchmarkSymbols = map[domain.Benchmark]string{
	domain.BenchmarkSP500:  "^spx",
	domain.BenchmarkNasdaq: "^ndq",
}

// StooqProvider fetches daily index closes from stooq's CSV export endpoint.
// The endpoint is unauthenticated and returns one row per trading day.
type StooqProvider struct {
	baseURL string
	client  *http.Client
}

func NewStooqProvider(baseURL string, timeout time.Duration) *StooqProvider {
	return &StooqProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *StooqProvider) DailyCloses(ctx context.Context, benchmark domain.Benchmark, from, to time.Time) ([]domain.Close, error) {
	symbol, ok := benchmarkSymbols[benchmark]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark %q", benchmark)
	}

	params := url.Values{}
	params.Set("s", symbol)
	params.Set("d1", ledger.Day(from).Format("20060102"))
	params.Set("d2", ledger.Day(to).Format("20060102"))
	params.Set("i", "d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode)
	}
	return parseDailyCSV(resp.Body)
}

// parseDailyCSV reads stooq's Date,Open,High,Low,Close[,Volume] export. A
// body without data rows (stooq answers "No data" in plain text) yields an
// empty series rather than an error.
func parseDailyCSV(body io.Reader) ([]domain.Close, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, nil
	}

	closes := make([]domain.Close, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) <= dateCol || len(record) <= closeCol {
			continue
		}
		date, err := time.Parse(ledger.DateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(record[closeCol]))
		if err != nil {
			continue
		}
		closes = append(closes, domain.Close{Date: date, Value: value})
	}
	return closes, nil
}
