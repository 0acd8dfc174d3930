package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// summaryTable describes the per-granularity table layout. The bucket
// column is named after the granularity (hour_start / date / week_start)
// and only the weekly table carries a day-of-week breakdown.
type summaryTable struct {
	name              string
	bucketColumn      string
	hasDailyBreakdown bool
	extraSelect       string
	upsertQuery       string
}

var summaryTables = map[models.Granularity]summaryTable{
	models.GranularityHourly: newSummaryTable("stock_hourly_summary", "hour_start", false),
	models.GranularityDaily:  newSummaryTable("stock_daily_summary", "date", false),
	models.GranularityWeekly: newSummaryTable("stock_weekly_summary", "week_start", true),
}

func tableFor(gran models.Granularity) (summaryTable, error) {
	t, ok := summaryTables[gran]
	if !ok {
		return summaryTable{}, fmt.Errorf("unknown granularity %q", gran)
	}
	return t, nil
}

func newSummaryTable(name, bucketColumn string, hasDailyBreakdown bool) summaryTable {
	t := summaryTable{
		name:              name,
		bucketColumn:      bucketColumn,
		hasDailyBreakdown: hasDailyBreakdown,
	}

	columns := fmt.Sprintf(`ticker, %s, mention_count, avg_sentiment, weighted_sentiment,
		total_confidence, avg_confidence, signal_counts, high_conf_count,
		high_conf_sum, high_conf_sentiment, price_targets, subreddits, top_contexts`, bucketColumn)
	placeholders := "$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14"
	next := 15

	if hasDailyBreakdown {
		t.extraSelect = "daily_breakdown,"
		columns += ", daily_breakdown"
		placeholders += fmt.Sprintf(", $%d", next)
		next++
	}

	columns += ", etl_timestamp"
	placeholders += fmt.Sprintf(", $%d", next)

	t.upsertQuery = fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		ON CONFLICT (ticker, %s) DO UPDATE SET
			mention_count = EXCLUDED.mention_count,
			avg_sentiment = EXCLUDED.avg_sentiment,
			weighted_sentiment = EXCLUDED.weighted_sentiment,
			total_confidence = EXCLUDED.total_confidence,
			avg_confidence = EXCLUDED.avg_confidence,
			signal_counts = EXCLUDED.signal_counts,
			high_conf_count = EXCLUDED.high_conf_count,
			high_conf_sum = EXCLUDED.high_conf_sum,
			high_conf_sentiment = EXCLUDED.high_conf_sentiment,
			price_targets = EXCLUDED.price_targets,
			subreddits = EXCLUDED.subreddits,
			top_contexts = EXCLUDED.top_contexts,%s
			etl_timestamp = EXCLUDED.etl_timestamp
	`, name, columns, placeholders, bucketColumn, dailyBreakdownSet(hasDailyBreakdown))

	return t
}

func dailyBreakdownSet(enabled bool) string {
	if enabled {
		return "\n\t\t\tdaily_breakdown = EXCLUDED.daily_breakdown,"
	}
	return ""
}

// schemaStatements create the tables this pipeline owns.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stock_mentions (
		message_id          TEXT NOT NULL,
		ticker              TEXT NOT NULL,
		author              TEXT,
		created_at          TIMESTAMPTZ NOT NULL,
		subreddit           TEXT,
		url                 TEXT,
		score               INTEGER NOT NULL DEFAULT 0,
		message_type        TEXT,
		sentiment_compound  DOUBLE PRECISION NOT NULL,
		sentiment_positive  DOUBLE PRECISION NOT NULL,
		sentiment_negative  DOUBLE PRECISION NOT NULL,
		sentiment_neutral   DOUBLE PRECISION NOT NULL,
		signals             JSONB NOT NULL DEFAULT '[]',
		price_targets       JSONB NOT NULL DEFAULT '[]',
		context             TEXT,
		confidence          DOUBLE PRECISION NOT NULL,
		etl_timestamp       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (message_id, ticker)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_mentions_created_at
		ON stock_mentions (created_at)`,
	summaryTableDDL("stock_hourly_summary", "hour_start", false),
	summaryTableDDL("stock_daily_summary", "date", false),
	summaryTableDDL("stock_weekly_summary", "week_start", true),
	`CREATE TABLE IF NOT EXISTS etl_state (
		pipeline_id        TEXT PRIMARY KEY,
		last_run_timestamp TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
}

func summaryTableDDL(name, bucketColumn string, hasDailyBreakdown bool) string {
	breakdown := ""
	if hasDailyBreakdown {
		breakdown = "daily_breakdown     JSONB NOT NULL DEFAULT '{}',\n\t\t"
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ticker              TEXT NOT NULL,
		%s         TIMESTAMPTZ NOT NULL,
		mention_count       INTEGER NOT NULL DEFAULT 0,
		avg_sentiment       DOUBLE PRECISION NOT NULL DEFAULT 0,
		weighted_sentiment  DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
		signal_counts       JSONB NOT NULL DEFAULT '{}',
		high_conf_count     INTEGER NOT NULL DEFAULT 0,
		high_conf_sum       DOUBLE PRECISION NOT NULL DEFAULT 0,
		high_conf_sentiment DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_targets       JSONB NOT NULL DEFAULT '{}',
		subreddits          JSONB NOT NULL DEFAULT '{}',
		top_contexts        JSONB NOT NULL DEFAULT '[]',
		%setl_timestamp       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (ticker, %s)
	)`, name, bucketColumn, breakdown, bucketColumn)
}

// Setup creates the pipeline's tables if they do not exist yet.
func (s *Postgres) Setup(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup: %w", err)
		}
	}
	logrus.Info("Database schema is up to date")
	return nil
}
