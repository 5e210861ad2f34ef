package workers

import (
	"context"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/sirupsen/logrus"
)

// RunExecutor executes a claimed generation run
type RunExecutor interface {
	ExecuteRun(ctx context.Context, run *models.GenerationRun) error
}

// RunExecutorFunc adapts a function to RunExecutor
type RunExecutorFunc func(ctx context.Context, run *models.GenerationRun) error

func (f RunExecutorFunc) ExecuteRun(ctx context.Context, run *models.GenerationRun) error {
	return f(ctx, run)
}

// GenerationWorker claims queued generation runs and executes them
type GenerationWorker struct {
	*BaseWorker
	runRepo      *repositories.GenerationRunRepository
	executor     RunExecutor
	pollInterval time.Duration
}

// NewGenerationWorker creates a new generation worker
func NewGenerationWorker(workerID string, runRepo *repositories.GenerationRunRepository, executor RunExecutor, pollInterval time.Duration) *GenerationWorker {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &GenerationWorker{
		BaseWorker:   NewBaseWorker(workerID),
		runRepo:      runRepo,
		executor:     executor,
		pollInterval: pollInterval,
	}
}

// Start begins the generation worker process
func (w *GenerationWorker) Start(ctx context.Context) error {
	w.setRunning(true)
	defer w.setRunning(false)

	log := logger.WithField("worker_id", w.WorkerID)
	log.Info("Generation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Generation worker stopping due to context cancellation")
			return ctx.Err()
		case <-w.StopChan:
			log.Info("Generation worker stopping")
			return nil
		default:
		}

		run, err := w.runRepo.GetNextPendingRun(w.WorkerID)
		if err != nil {
			log.WithError(err).Error("Failed to claim generation run")
			w.wait(ctx, w.pollInterval)
			continue
		}

		if run == nil {
			w.wait(ctx, w.pollInterval)
			continue
		}

		w.processRun(ctx, run)
	}
}

func (w *GenerationWorker) processRun(ctx context.Context, run *models.GenerationRun) {
	log := logger.WithFields(logrus.Fields{
		"worker_id": w.WorkerID,
		"run_id":    run.ID,
	})
	log.Info("Processing generation run")

	// The executor records the run outcome itself
	if err := w.executor.ExecuteRun(ctx, run); err != nil {
		log.WithError(err).Warn("Generation run failed")
		return
	}

	log.Info("Generation run completed")
}

// wait sleeps for d unless the worker is stopped first
func (w *GenerationWorker) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-w.StopChan:
	case <-timer.C:
	}
}
