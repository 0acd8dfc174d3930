package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stockpulse/stock-mentions-etl/internal/pipeline"
)

// Service triggers pipeline runs on a cron schedule.
type Service struct {
	schedule string
	pipeline *pipeline.Pipeline
	cron     *cron.Cron
}

// NewService creates a scheduler running the pipeline on the given cron
// expression (with a seconds field, e.g. "0 15 * * * *" for quarter past
// every hour).
func NewService(schedule string, p *pipeline.Pipeline) *Service {
	return &Service{
		schedule: schedule,
		pipeline: p,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins scheduled runs.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		logrus.Info("Starting scheduled pipeline run")
		if _, err := s.pipeline.Run(context.Background()); err != nil {
			logrus.Errorf("Scheduled pipeline run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop stops the scheduler. In-flight runs finish on their own.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
