package state

import (
	"context"
	"time"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
	"github.com/stockpulse/stock-mentions-etl/internal/store"
)

// Tracker persists the per-pipeline watermark: the timestamp up to which
// source data has been fully processed. The watermark is written only after
// a run completes, so a failed run leaves the next run retrying the same
// window instead of skipping data.
type Tracker interface {
	// LastRun returns the watermark for a pipeline. ok is false when the
	// pipeline has never completed a run.
	LastRun(ctx context.Context, pipelineID string) (ts time.Time, ok bool, err error)

	// SetLastRun records a successfully processed watermark.
	SetLastRun(ctx context.Context, pipelineID string, ts time.Time) error
}

// StoreTracker keeps run state in the pipeline's row store (the etl_state
// table), alongside the data it guards.
type StoreTracker struct {
	store store.Store
}

var _ Tracker = (*StoreTracker)(nil)

// NewStoreTracker creates a Tracker backed by the persistence gateway.
func NewStoreTracker(s store.Store) *StoreTracker {
	return &StoreTracker{store: s}
}

// LastRun reads the watermark row for the pipeline.
func (t *StoreTracker) LastRun(ctx context.Context, pipelineID string) (time.Time, bool, error) {
	state, err := t.store.GetRunState(ctx, pipelineID)
	if err != nil {
		return time.Time{}, false, err
	}
	if state == nil {
		return time.Time{}, false, nil
	}
	return state.LastRunTimestamp, true, nil
}

// SetLastRun upserts the watermark row for the pipeline.
func (t *StoreTracker) SetLastRun(ctx context.Context, pipelineID string, ts time.Time) error {
	return t.store.SetRunState(ctx, models.RunState{
		PipelineID:       pipelineID,
		LastRunTimestamp: ts,
		UpdatedAt:        time.Now().UTC(),
	})
}
