package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/aggregator"
	"github.com/stockpulse/stock-mentions-etl/internal/dedup"
	"github.com/stockpulse/stock-mentions-etl/internal/extractor"
	"github.com/stockpulse/stock-mentions-etl/internal/models"
	"github.com/stockpulse/stock-mentions-etl/internal/notifications"
	"github.com/stockpulse/stock-mentions-etl/internal/source"
	"github.com/stockpulse/stock-mentions-etl/internal/state"
	"github.com/stockpulse/stock-mentions-etl/internal/store"
	"github.com/stockpulse/stock-mentions-etl/internal/storage"
)

// Pipeline orchestrates one ETL run: read watermark, fetch new messages,
// extract mentions, deduplicate, persist mentions, fold into the hourly /
// daily / weekly summaries, persist summaries, then advance the watermark.
//
// Writes are ordered mentions -> summaries -> watermark so that any failure
// leaves the watermark untouched and the next run retries the same window;
// dedup makes that retry idempotent.
type Pipeline struct {
	pipelineID string
	lookback   time.Duration
	maxRecords int

	source    source.MessageSource
	extractor *extractor.Extractor
	dedup     *dedup.Deduplicator
	agg       *aggregator.Aggregator
	store     store.Store
	tracker   state.Tracker

	// Optional collaborators; nil disables them.
	archive  storage.Interface
	notifier notifications.Notifier

	mu         sync.Mutex
	running    bool
	lastReport *models.RunReport
}

// Options wires a Pipeline's collaborators.
type Options struct {
	PipelineID string
	Lookback   time.Duration
	MaxRecords int

	Source    source.MessageSource
	Extractor *extractor.Extractor
	Dedup     *dedup.Deduplicator
	Agg       *aggregator.Aggregator
	Store     store.Store
	Tracker   state.Tracker

	Archive  storage.Interface
	Notifier notifications.Notifier
}

// ErrRunInProgress is returned when a run is requested while another run for
// the same pipeline is still active.
var ErrRunInProgress = fmt.Errorf("pipeline run already in progress")

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		pipelineID: opts.PipelineID,
		lookback:   opts.Lookback,
		maxRecords: opts.MaxRecords,
		source:     opts.Source,
		extractor:  opts.Extractor,
		dedup:      opts.Dedup,
		agg:        opts.Agg,
		store:      opts.Store,
		tracker:    opts.Tracker,
		archive:    opts.Archive,
		notifier:   opts.Notifier,
	}
}

// Run executes one pipeline run. Only one run per Pipeline may be active at
// a time; overlapping calls fail with ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	start := time.Now().UTC()
	report := &models.RunReport{
		RunID:            uuid.NewString(),
		PipelineID:       p.pipelineID,
		StartedAt:        start,
		SummariesWritten: make(map[string]int),
	}

	logrus.Infof("Starting pipeline run %s for %s", report.RunID, p.pipelineID)

	err := p.run(ctx, start, report)
	report.Duration = time.Since(start)
	if err != nil {
		report.Status = "failed"
		report.Error = err.Error()
		logrus.Errorf("Pipeline run %s failed after %v: %v", report.RunID, report.Duration, err)
	} else {
		report.Status = "success"
		logrus.Infof("Pipeline run %s completed in %v: %d new mentions",
			report.RunID, report.Duration, report.MentionsNew)
	}

	p.finishRun(report)

	if err != nil {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, runStart time.Time, report *models.RunReport) error {
	// The processing window is [watermark, runStart); runStart becomes the
	// new watermark only after everything below succeeds.
	since, ok, err := p.tracker.LastRun(ctx, p.pipelineID)
	if err != nil {
		return fmt.Errorf("reading run state: %w", err)
	}
	if !ok {
		since = runStart.Add(-p.lookback)
		logrus.Infof("No prior run state for %s, falling back to %v lookback", p.pipelineID, p.lookback)
	}
	report.WindowStart = since

	messages, err := p.source.FetchSince(ctx, since, p.maxRecords)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}
	report.MessagesFetched = len(messages)

	mentions, extractionErrors := p.extractor.ExtractBatch(messages)
	report.MentionsExtracted = len(mentions)
	report.ExtractionErrors = extractionErrors

	fresh, err := p.dedup.Filter(ctx, mentions)
	if err != nil {
		return fmt.Errorf("deduplicating mentions: %w", err)
	}
	report.MentionsNew = len(fresh)

	if len(fresh) > 0 {
		inserted, err := p.store.InsertMentions(ctx, fresh)
		if err != nil {
			return fmt.Errorf("persisting mentions: %w", err)
		}
		logrus.Infof("Persisted %d stock mentions (%d extracted, %d after dedup)",
			inserted, len(mentions), len(fresh))

		for _, gran := range models.Granularities {
			summaries, err := p.agg.Fold(ctx, gran, fresh)
			if err != nil {
				return fmt.Errorf("aggregating %s summaries: %w", gran, err)
			}
			if err := p.store.UpsertSummaries(ctx, gran, summaries); err != nil {
				return fmt.Errorf("persisting %s summaries: %w", gran, err)
			}
			report.SummariesWritten[string(gran)] = len(summaries)
		}
	} else {
		logrus.Info("No new mentions in this window")
	}

	// All writes succeeded; advancing the watermark marks the window done.
	if err := p.tracker.SetLastRun(ctx, p.pipelineID, runStart); err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}

	return nil
}

// finishRun records, archives, and notifies about the finished run. These
// are best-effort and never change the run's outcome.
func (p *Pipeline) finishRun(report *models.RunReport) {
	p.mu.Lock()
	p.lastReport = report
	p.mu.Unlock()

	if p.archive != nil {
		name := fmt.Sprintf("reports/%s/%s.json", p.pipelineID, report.RunID)
		data, err := json.Marshal(report)
		if err == nil {
			err = p.archive.Store(name, data)
		}
		if err != nil {
			logrus.Errorf("Failed to archive run report: %v", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.SendRunReport(report); err != nil {
			logrus.Errorf("Failed to send run report: %v", err)
		}
	}
}

// LastReport returns the most recent run report, or nil before the first
// run finishes.
func (p *Pipeline) LastReport() *models.RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReport
}
