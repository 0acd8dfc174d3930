package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
	"github.com/stockpulse/stock-mentions-etl/internal/storage"
)

// BlobTracker keeps run state as one JSON document per pipeline in blob
// storage, under state/<pipeline_id>.json. Pipelines are isolated by id, so
// a test pipeline never shares a watermark with production.
type BlobTracker struct {
	store storage.Interface
}

var _ Tracker = (*BlobTracker)(nil)

// NewBlobTracker creates a Tracker backed by a blob store.
func NewBlobTracker(store storage.Interface) *BlobTracker {
	return &BlobTracker{store: store}
}

func stateBlobName(pipelineID string) string {
	return "state/" + pipelineID + ".json"
}

// LastRun reads the pipeline's state document. A missing document means the
// pipeline has never completed a run; it is not an error.
func (t *BlobTracker) LastRun(_ context.Context, pipelineID string) (time.Time, bool, error) {
	names, err := t.store.List(stateBlobName(pipelineID))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("listing state blobs: %w", err)
	}
	if len(names) == 0 {
		return time.Time{}, false, nil
	}

	data, err := t.store.Retrieve(stateBlobName(pipelineID))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading state for %s: %w", pipelineID, err)
	}

	var state models.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Time{}, false, fmt.Errorf("decoding state for %s: %w", pipelineID, err)
	}
	if state.LastRunTimestamp.IsZero() {
		return time.Time{}, false, nil
	}

	return state.LastRunTimestamp, true, nil
}

// SetLastRun replaces the pipeline's state document.
func (t *BlobTracker) SetLastRun(_ context.Context, pipelineID string, ts time.Time) error {
	state := models.RunState{
		PipelineID:       pipelineID,
		LastRunTimestamp: ts,
		UpdatedAt:        time.Now().UTC(),
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", pipelineID, err)
	}

	if err := t.store.Store(stateBlobName(pipelineID), data); err != nil {
		return fmt.Errorf("writing state for %s: %w", pipelineID, err)
	}
	return nil
}
