package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/config"
	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// connString builds a PostgreSQL connection string from config.
func connString(cfg *config.Config) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.DBPassword)

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser,
		escapedPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// InsertMentions batch-inserts mentions with ON CONFLICT DO NOTHING on the
// dedup key, so retried batches never duplicate rows.
func (s *Postgres) InsertMentions(ctx context.Context, mentions []models.StockMention) (int, error) {
	if len(mentions) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, m := range mentions {
		signals, err := json.Marshal(m.Signals)
		if err != nil {
			return 0, fmt.Errorf("marshal signals for %s/%s: %w", m.MessageID, m.Ticker, err)
		}
		targets, err := json.Marshal(m.PriceTargets)
		if err != nil {
			return 0, fmt.Errorf("marshal price targets for %s/%s: %w", m.MessageID, m.Ticker, err)
		}

		batch.Queue(`
			INSERT INTO stock_mentions
				(message_id, ticker, author, created_at, subreddit, url, score, message_type,
				 sentiment_compound, sentiment_positive, sentiment_negative, sentiment_neutral,
				 signals, price_targets, context, confidence, etl_timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (message_id, ticker) DO NOTHING
		`, m.MessageID, m.Ticker, m.Author, m.CreatedAt, m.Subreddit, m.URL, m.Score, m.MessageType,
			m.SentimentCompound, m.SentimentPositive, m.SentimentNegative, m.SentimentNeutral,
			signals, targets, m.Context, m.Confidence, m.ETLTimestamp)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range mentions {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert mention: %w", err)
		}
		inserted += int(ct.RowsAffected())
	}

	if conflicts := len(mentions) - inserted; conflicts > 0 {
		logrus.Debugf("Mention insert skipped %d existing rows", conflicts)
	}

	return inserted, nil
}

// ExistingMentionKeys checks the given keys against the stock_mentions table.
func (s *Postgres) ExistingMentionKeys(ctx context.Context, keys []models.MentionKey) (map[models.MentionKey]bool, error) {
	existing := make(map[models.MentionKey]bool)
	if len(keys) == 0 {
		return existing, nil
	}

	messageIDs := make([]string, len(keys))
	tickers := make([]string, len(keys))
	for i, k := range keys {
		messageIDs[i] = k.MessageID
		tickers[i] = k.Ticker
	}

	rows, err := s.pool.Query(ctx, `
		SELECT m.message_id, m.ticker
		FROM stock_mentions m
		JOIN unnest($1::text[], $2::text[]) AS k(message_id, ticker)
		  ON m.message_id = k.message_id AND m.ticker = k.ticker
	`, messageIDs, tickers)
	if err != nil {
		return nil, fmt.Errorf("query existing mention keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key models.MentionKey
		if err := rows.Scan(&key.MessageID, &key.Ticker); err != nil {
			return nil, fmt.Errorf("scan mention key: %w", err)
		}
		existing[key] = true
	}

	return existing, rows.Err()
}

// GetSummary point-reads one summary row. Returns nil when the bucket has
// no row yet.
func (s *Postgres) GetSummary(ctx context.Context, gran models.Granularity, ticker string, bucketStart time.Time) (*models.Summary, error) {
	t, err := tableFor(gran)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT mention_count, avg_sentiment, weighted_sentiment, total_confidence,
		       avg_confidence, signal_counts, high_conf_count, high_conf_sum,
		       high_conf_sentiment, price_targets, subreddits, top_contexts,
		       %s etl_timestamp
		FROM %s
		WHERE ticker = $1 AND %s = $2
	`, t.extraSelect, t.name, t.bucketColumn)

	row := s.pool.QueryRow(ctx, query, ticker, bucketStart)

	summary := models.NewSummary(gran, ticker, bucketStart)
	var signalCounts, priceTargets, subreddits, topContexts []byte
	var dailyBreakdown []byte

	dest := []interface{}{
		&summary.MentionCount, &summary.AvgSentiment, &summary.WeightedSentiment,
		&summary.TotalConfidence, &summary.AvgConfidence, &signalCounts,
		&summary.HighConfCount, &summary.HighConfSum, &summary.HighConfSentiment,
		&priceTargets, &subreddits, &topContexts,
	}
	if t.hasDailyBreakdown {
		dest = append(dest, &dailyBreakdown)
	}
	dest = append(dest, &summary.ETLTimestamp)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s summary: %w", gran, err)
	}

	if err := json.Unmarshal(signalCounts, &summary.SignalCounts); err != nil {
		return nil, fmt.Errorf("decode signal counts: %w", err)
	}
	if err := json.Unmarshal(priceTargets, &summary.PriceTargets); err != nil {
		return nil, fmt.Errorf("decode price targets: %w", err)
	}
	if err := json.Unmarshal(subreddits, &summary.Subreddits); err != nil {
		return nil, fmt.Errorf("decode subreddits: %w", err)
	}
	if err := json.Unmarshal(topContexts, &summary.TopContexts); err != nil {
		return nil, fmt.Errorf("decode top contexts: %w", err)
	}
	if t.hasDailyBreakdown && len(dailyBreakdown) > 0 {
		if err := json.Unmarshal(dailyBreakdown, &summary.DailyBreakdown); err != nil {
			return nil, fmt.Errorf("decode daily breakdown: %w", err)
		}
	}

	return summary, nil
}

// UpsertSummaries writes merged rows with full-row replacement, one
// transaction per call so a run's summaries for a granularity land together.
func (s *Postgres) UpsertSummaries(ctx context.Context, gran models.Granularity, summaries []*models.Summary) error {
	if len(summaries) == 0 {
		return nil
	}

	t, err := tableFor(gran)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin summary upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sum := range summaries {
		signalCounts, err := json.Marshal(sum.SignalCounts)
		if err != nil {
			return fmt.Errorf("marshal signal counts: %w", err)
		}
		priceTargets, err := json.Marshal(sum.PriceTargets)
		if err != nil {
			return fmt.Errorf("marshal price targets: %w", err)
		}
		subreddits, err := json.Marshal(sum.Subreddits)
		if err != nil {
			return fmt.Errorf("marshal subreddits: %w", err)
		}
		topContexts, err := json.Marshal(sum.TopContexts)
		if err != nil {
			return fmt.Errorf("marshal top contexts: %w", err)
		}

		args := []interface{}{
			sum.Ticker, sum.BucketStart, sum.MentionCount, sum.AvgSentiment,
			sum.WeightedSentiment, sum.TotalConfidence, sum.AvgConfidence,
			signalCounts, sum.HighConfCount, sum.HighConfSum,
			sum.HighConfSentiment, priceTargets, subreddits, topContexts,
		}
		if t.hasDailyBreakdown {
			dailyBreakdown, err := json.Marshal(sum.DailyBreakdown)
			if err != nil {
				return fmt.Errorf("marshal daily breakdown: %w", err)
			}
			args = append(args, dailyBreakdown)
		}
		args = append(args, sum.ETLTimestamp)

		if _, err := tx.Exec(ctx, t.upsertQuery, args...); err != nil {
			return fmt.Errorf("upsert %s summary for %s: %w", gran, sum.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit summary upsert: %w", err)
	}

	logrus.Debugf("Upserted %d %s summaries", len(summaries), gran)
	return nil
}

// GetRunState reads the watermark record for a pipeline.
func (s *Postgres) GetRunState(ctx context.Context, pipelineID string) (*models.RunState, error) {
	state := models.RunState{PipelineID: pipelineID}
	err := s.pool.QueryRow(ctx, `
		SELECT last_run_timestamp, updated_at FROM etl_state WHERE pipeline_id = $1
	`, pipelineID).Scan(&state.LastRunTimestamp, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run state for %s: %w", pipelineID, err)
	}
	return &state, nil
}

// SetRunState upserts the watermark record for a pipeline.
func (s *Postgres) SetRunState(ctx context.Context, state models.RunState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO etl_state (pipeline_id, last_run_timestamp, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (pipeline_id) DO UPDATE
		SET last_run_timestamp = EXCLUDED.last_run_timestamp,
		    updated_at = EXCLUDED.updated_at
	`, state.PipelineID, state.LastRunTimestamp, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert run state for %s: %w", state.PipelineID, err)
	}
	return nil
}
