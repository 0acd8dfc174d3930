package models

import "time"

// Signal is a trading-signal tag detected in a mention's context.
type Signal string

const (
	SignalBuy       Signal = "BUY"
	SignalSell      Signal = "SELL"
	SignalHold      Signal = "HOLD"
	SignalNews      Signal = "NEWS"
	SignalEarnings  Signal = "EARNINGS"
	SignalTechnical Signal = "TECHNICAL"
	SignalOptions   Signal = "OPTIONS"
)

// AllSignals lists every signal tag in a stable order.
var AllSignals = []Signal{
	SignalBuy, SignalSell, SignalHold,
	SignalNews, SignalEarnings, SignalTechnical, SignalOptions,
}

// Message types for RawMessage.
const (
	MessageTypePost    = "post"
	MessageTypeComment = "comment"
)

// RawMessage is a Reddit post or comment as delivered by the message source.
// Immutable once ingested; this pipeline only reads it.
type RawMessage struct {
	MessageID   string    `json:"message_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	Subreddit   string    `json:"subreddit"`
	URL         string    `json:"url"`
	Score       int       `json:"score"`
	MessageType string    `json:"message_type"` // "post" or "comment"
	ParentID    string    `json:"parent_id,omitempty"`
}

// SentimentScores holds the scores returned by the sentiment scorer.
// Compound is in [-1, 1]; the others are in [0, 1].
type SentimentScores struct {
	Compound float64 `json:"compound"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// StockMention is one (message, ticker) pair with its analysis results.
// Unique on (MessageID, Ticker) - the dedup key. Immutable after persistence.
type StockMention struct {
	MessageID         string    `json:"message_id"`
	Ticker            string    `json:"ticker"`
	Author            string    `json:"author"`
	CreatedAt         time.Time `json:"created_at"`
	Subreddit         string    `json:"subreddit"`
	URL               string    `json:"url"`
	Score             int       `json:"score"`
	MessageType       string    `json:"message_type"`
	SentimentCompound float64   `json:"sentiment_compound"`
	SentimentPositive float64   `json:"sentiment_positive"`
	SentimentNegative float64   `json:"sentiment_negative"`
	SentimentNeutral  float64   `json:"sentiment_neutral"`
	Signals           []Signal  `json:"signals"`
	PriceTargets      []float64 `json:"price_targets,omitempty"`
	Context           string    `json:"context"`
	Confidence        float64   `json:"confidence"`
	ETLTimestamp      time.Time `json:"etl_timestamp"`
}

// MentionKey is the dedup key for a stock mention.
type MentionKey struct {
	MessageID string
	Ticker    string
}

// Key returns the mention's dedup key.
func (m StockMention) Key() MentionKey {
	return MentionKey{MessageID: m.MessageID, Ticker: m.Ticker}
}

// HasSignal reports whether the mention carries the given signal tag.
func (m StockMention) HasSignal(s Signal) bool {
	for _, sig := range m.Signals {
		if sig == s {
			return true
		}
	}
	return false
}

// TopContext is one high-confidence mention context carried on a summary
// row, ranked against the others by confidence.
type TopContext struct {
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

// Granularity selects a summary bucket size.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// Granularities lists the supported bucket sizes in ascending size order.
var Granularities = []Granularity{GranularityHourly, GranularityDaily, GranularityWeekly}

// Summary is a per-ticker aggregate over one time bucket. The same shape is
// stored at hourly, daily, and weekly granularity; DailyBreakdown is only
// populated for weekly rows.
//
// TotalConfidence, HighConfCount, and HighConfSum are running accumulators
// carried on the row so later batches can be merged without re-reading the
// underlying mentions.
type Summary struct {
	Ticker      string      `json:"ticker"`
	Granularity Granularity `json:"granularity"`
	BucketStart time.Time   `json:"bucket_start"`

	MentionCount      int            `json:"mention_count"`
	AvgSentiment      float64        `json:"avg_sentiment"`
	WeightedSentiment float64        `json:"weighted_sentiment"`
	TotalConfidence   float64        `json:"total_confidence"`
	AvgConfidence     float64        `json:"avg_confidence"`
	SignalCounts      map[Signal]int `json:"signal_counts"`

	HighConfCount     int     `json:"high_conf_count"`
	HighConfSum       float64 `json:"high_conf_sum"`
	HighConfSentiment float64 `json:"high_conf_sentiment"`

	PriceTargets   map[string]int `json:"price_targets"`
	Subreddits     map[string]int `json:"subreddits"`
	TopContexts    []TopContext   `json:"top_contexts"`
	DailyBreakdown map[string]int `json:"daily_breakdown,omitempty"`

	ETLTimestamp time.Time `json:"etl_timestamp"`
}

// NewSummary returns a zero-initialized summary row for a bucket.
func NewSummary(gran Granularity, ticker string, bucketStart time.Time) *Summary {
	return &Summary{
		Ticker:       ticker,
		Granularity:  gran,
		BucketStart:  bucketStart,
		SignalCounts: make(map[Signal]int),
		PriceTargets: make(map[string]int),
		Subreddits:   make(map[string]int),
	}
}

// RunState is the per-pipeline watermark record. Written only after a run
// completes successfully; read at the start of every run.
type RunState struct {
	PipelineID       string    `json:"pipeline_id"`
	LastRunTimestamp time.Time `json:"last_run_timestamp"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RunReport summarizes a single pipeline run for logging, archival, and
// notifications.
type RunReport struct {
	RunID             string         `json:"run_id"`
	PipelineID        string         `json:"pipeline_id"`
	StartedAt         time.Time      `json:"started_at"`
	Duration          time.Duration  `json:"duration"`
	WindowStart       time.Time      `json:"window_start"`
	MessagesFetched   int            `json:"messages_fetched"`
	MentionsExtracted int            `json:"mentions_extracted"`
	MentionsNew       int            `json:"mentions_new"`
	ExtractionErrors  int            `json:"extraction_errors"`
	SummariesWritten  map[string]int `json:"summaries_written"`
	Status            string         `json:"status"` // "success" or "failed"
	Error             string         `json:"error,omitempty"`
}
