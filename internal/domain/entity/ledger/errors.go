package ledger

import "errors"

var (
	// ErrDuplicateOrder signals that an execution with the same order number
	// already exists. Re-runs treat this as a no-op, not a failure.
	ErrDuplicateOrder = errors.New("duplicate order number")

	// ErrLotKeyCollision signals that two trade groups resolved to the same
	// lot business key. This is a data-modeling violation and fatal.
	ErrLotKeyCollision = errors.New("lot business key collision")

	// ErrNoOpenPositions signals that a snapshot date has no open lots. The
	// caller records a zero-value snapshot instead of failing the run.
	ErrNoOpenPositions = errors.New("no open positions")
)
