package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SchedulerService enqueues generation runs on a cron schedule; generation
// workers pick them up
type SchedulerService struct {
	runRepo *repositories.GenerationRunRepository
	spec    string
	cron    *cron.Cron
}

func NewSchedulerService(runRepo *repositories.GenerationRunRepository, spec string, location *time.Location) *SchedulerService {
	if location == nil {
		location = time.UTC
	}
	return &SchedulerService{
		runRepo: runRepo,
		spec:    spec,
		cron:    cron.New(cron.WithLocation(location)),
	}
}

// StartScheduler starts the cron scheduler; an empty spec disables it
func (s *SchedulerService) StartScheduler() error {
	if s.spec == "" {
		logger.Info("Generation schedule not configured, scheduled runs disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.EnqueueRun(); err != nil {
			logger.WithError(err).Error("Failed to enqueue scheduled generation run")
		}
	}); err != nil {
		return fmt.Errorf("invalid GENERATION_CRON %q: %w", s.spec, err)
	}

	s.cron.Start()
	logger.WithField("schedule", s.spec).Info("Generation scheduler started")
	return nil
}

// Stop stops the scheduler and returns a context done when running jobs finish
func (s *SchedulerService) Stop() context.Context {
	return s.cron.Stop()
}

// EnqueueRun queues a scheduled run unless one is already waiting
func (s *SchedulerService) EnqueueRun() (*models.GenerationRun, error) {
	pending, err := s.runRepo.CountPending()
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		logger.Debugf("Skipping scheduled generation run, %d already pending", pending)
		return nil, nil
	}

	run := models.NewGenerationRun(models.RunTriggerSchedule)
	if err := s.runRepo.Create(run); err != nil {
		return nil, err
	}

	logger.WithField("run_id", run.ID).Info("Scheduled generation run enqueued")
	return run, nil
}
