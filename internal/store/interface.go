package store

import (
	"context"
	"time"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// Store is the persistence gateway for mention rows, summary rows, and the
// per-pipeline run state. Mentions are insert-only, keyed by
// (message_id, ticker); summaries are full-row upserts keyed by
// (ticker, bucket_start).
type Store interface {
	// InsertMentions batch-inserts mentions, skipping rows whose dedup key
	// already exists. Returns the number actually inserted.
	InsertMentions(ctx context.Context, mentions []models.StockMention) (int, error)

	// ExistingMentionKeys returns the subset of keys already persisted.
	ExistingMentionKeys(ctx context.Context, keys []models.MentionKey) (map[models.MentionKey]bool, error)

	// GetSummary returns the summary row for (ticker, bucketStart) at the
	// given granularity, or nil if none exists.
	GetSummary(ctx context.Context, gran models.Granularity, ticker string, bucketStart time.Time) (*models.Summary, error)

	// UpsertSummaries replaces the stored rows with the merged values, all
	// granularity's rows in one transaction.
	UpsertSummaries(ctx context.Context, gran models.Granularity, summaries []*models.Summary) error

	// GetRunState returns the watermark record for a pipeline, or nil if the
	// pipeline has never completed a run.
	GetRunState(ctx context.Context, pipelineID string) (*models.RunState, error)

	// SetRunState writes the watermark record for a pipeline.
	SetRunState(ctx context.Context, state models.RunState) error
}
