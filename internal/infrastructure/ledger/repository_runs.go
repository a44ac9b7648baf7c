package ledger

import (
	"context"
	"errors"
	"time"

	domain "main/internal/domain/entity/ledger"
)

// RunRepository records pipeline stage outcomes.
type RunRepository struct {
	store *store
}

// RecordStage appends one stage outcome. The table is append-only; a rerun
// of the same date writes new rows under a new run id.
func (r *RunRepository) RecordStage(ctx context.Context, run *domain.SyncStageRun) error {
	if run == nil {
		return errors.New("nil stage run")
	}
	const query = `
		INSERT INTO sync_runs (run_id, target_date, stage, status, detail, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.store.pool.Exec(ctx, query,
		run.RunID,
		domain.Day(run.TargetDate),
		run.Stage,
		run.Status,
		run.Detail,
		run.FinishedAt,
	)
	return err
}

func (r *RunRepository) CompletedDates(ctx context.Context, stage string, from, to time.Time) ([]time.Time, error) {
	const query = `
		SELECT DISTINCT target_date
		FROM sync_runs
		WHERE stage = $1 AND status = $2 AND target_date >= $3 AND target_date <= $4
		ORDER BY target_date ASC`
	rows, err := r.store.pool.Query(ctx, query, stage, domain.StageStatusOK, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}
