package interfaces

import (
	"context"
	"time"

	ledger "main/internal/domain/entity/ledger"
)

// BrokerClient is the upstream data source for account state. Calls are
// idempotently re-fetchable; the engine never places orders through it.
type BrokerClient interface {
	// TradeHistory returns all fills with trade dates within [from, to].
	TradeHistory(ctx context.Context, from, to time.Time) ([]ledger.TradeExecution, error)
	// Holdings returns the account's current positions, stamped with the
	// given snapshot date.
	Holdings(ctx context.Context, snapshotDate time.Time) ([]ledger.Holding, error)
	// AccountSummary returns cash balance and cash-flow figures for the
	// snapshot date. Valuation fields are filled in by ingestion from the
	// holdings data.
	AccountSummary(ctx context.Context, snapshotDate time.Time) (*ledger.AccountSummary, error)
}
