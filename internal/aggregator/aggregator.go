package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/models"
)

// SummaryReader provides point reads of existing summary rows.
type SummaryReader interface {
	// GetSummary returns the row for (ticker, bucketStart) at the given
	// granularity, or nil if no row exists yet.
	GetSummary(ctx context.Context, gran models.Granularity, ticker string, bucketStart time.Time) (*models.Summary, error)
}

// Aggregator folds batches of new mentions into existing summary rows using
// count-weighted incremental formulas, so prior buckets are never recomputed
// from history.
//
// Inputs must already be deduplicated; Fold does not re-filter.
type Aggregator struct {
	reader SummaryReader

	// highConfidence is the threshold above which a mention contributes to
	// the high-confidence sentiment figures.
	highConfidence float64

	// priceTargetCap bounds the price-target map kept on a row.
	priceTargetCap int
}

// Options configures an Aggregator.
type Options struct {
	HighConfidence float64
	PriceTargetCap int
}

// New creates an Aggregator reading prior rows from reader.
func New(reader SummaryReader, opts Options) *Aggregator {
	if opts.HighConfidence == 0 {
		opts.HighConfidence = 0.7
	}
	if opts.PriceTargetCap == 0 {
		opts.PriceTargetCap = 20
	}
	return &Aggregator{
		reader:         reader,
		highConfidence: opts.HighConfidence,
		priceTargetCap: opts.PriceTargetCap,
	}
}

// topContextCap bounds the confidence-ranked context list kept on a row.
const topContextCap = 3

type groupKey struct {
	ticker      string
	bucketStart time.Time
}

// Fold merges the batch into summary rows for one granularity and returns
// the updated rows for write-back. An empty batch returns nil without
// touching any row.
func (a *Aggregator) Fold(ctx context.Context, gran models.Granularity, mentions []models.StockMention) ([]*models.Summary, error) {
	if len(mentions) == 0 {
		return nil, nil
	}

	groups := make(map[groupKey][]models.StockMention)
	for _, m := range mentions {
		key := groupKey{ticker: m.Ticker, bucketStart: BucketStart(gran, m.CreatedAt)}
		groups[key] = append(groups[key], m)
	}

	// Stable output order keeps writes and logs deterministic.
	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ticker != keys[j].ticker {
			return keys[i].ticker < keys[j].ticker
		}
		return keys[i].bucketStart.Before(keys[j].bucketStart)
	})

	summaries := make([]*models.Summary, 0, len(keys))
	for _, key := range keys {
		row, err := a.reader.GetSummary(ctx, gran, key.ticker, key.bucketStart)
		if err != nil {
			return nil, fmt.Errorf("reading %s summary for %s @ %s: %w",
				gran, key.ticker, key.bucketStart.Format(time.RFC3339), err)
		}
		if row == nil {
			row = models.NewSummary(gran, key.ticker, key.bucketStart)
		}

		a.merge(row, groups[key])
		summaries = append(summaries, row)
	}

	logrus.Debugf("Folded %d mentions into %d %s summaries", len(mentions), len(summaries), gran)
	return summaries, nil
}

// merge applies one group of new mentions to a row. The incremental
// formulas keep the row equal to what a full recompute over all of its
// mentions would produce:
//
//	avg'      = (avg*n + sum(new)) / (n + k)
//	weighted' = (weighted*totalConf + sum(sent*conf)) / (totalConf + sum(conf))
func (a *Aggregator) merge(row *models.Summary, group []models.StockMention) {
	oldCount := float64(row.MentionCount)
	oldTotalConf := row.TotalConfidence

	var sumSentiment, sumConfidence, sumWeighted float64
	for _, m := range group {
		sumSentiment += m.SentimentCompound
		sumConfidence += m.Confidence
		sumWeighted += m.SentimentCompound * m.Confidence

		for _, s := range m.Signals {
			row.SignalCounts[s]++
		}
		if m.Subreddit != "" {
			row.Subreddits[m.Subreddit]++
		}
		for _, pt := range m.PriceTargets {
			row.PriceTargets[formatTarget(pt)]++
		}

		if m.Confidence > a.highConfidence {
			row.HighConfCount++
			row.HighConfSum += m.SentimentCompound
		}

		if row.Granularity == models.GranularityWeekly {
			if row.DailyBreakdown == nil {
				row.DailyBreakdown = make(map[string]int)
			}
			row.DailyBreakdown[m.CreatedAt.UTC().Weekday().String()]++
		}
	}

	newCount := oldCount + float64(len(group))
	newTotalConf := oldTotalConf + sumConfidence

	row.AvgSentiment = (row.AvgSentiment*oldCount + sumSentiment) / newCount
	if newTotalConf > 0 {
		row.WeightedSentiment = (row.WeightedSentiment*oldTotalConf + sumWeighted) / newTotalConf
	} else {
		row.WeightedSentiment = row.AvgSentiment
	}

	row.MentionCount = int(newCount)
	row.TotalConfidence = newTotalConf
	row.AvgConfidence = newTotalConf / newCount

	if row.HighConfCount > 0 {
		row.HighConfSentiment = row.HighConfSum / float64(row.HighConfCount)
	}

	capCounts(row.PriceTargets, a.priceTargetCap)
	row.TopContexts = mergeTopContexts(row.TopContexts, group)

	row.ETLTimestamp = time.Now().UTC()
}

// mergeTopContexts folds the group's contexts into the row's ranked list,
// keeping the topContextCap highest-confidence entries. Ties break on the
// context text so merges stay deterministic.
func mergeTopContexts(existing []models.TopContext, group []models.StockMention) []models.TopContext {
	merged := make([]models.TopContext, 0, len(existing)+len(group))
	merged = append(merged, existing...)
	for _, m := range group {
		if m.Context == "" {
			continue
		}
		merged = append(merged, models.TopContext{Context: m.Context, Confidence: m.Confidence})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return merged[i].Context < merged[j].Context
	})

	if len(merged) > topContextCap {
		merged = merged[:topContextCap]
	}
	return merged
}

func formatTarget(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// capCounts trims a count map to its top-n entries by count, breaking ties
// by key so the result is deterministic.
func capCounts(m map[string]int, n int) {
	if len(m) <= n {
		return
	}

	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(m))
	for k, c := range m {
		entries = append(entries, entry{k, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	for _, e := range entries[n:] {
		delete(m, e.key)
	}
}
