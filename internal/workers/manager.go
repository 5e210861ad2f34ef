package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/pkg/logger"
)

// WorkerManager manages the generation workers
type WorkerManager struct {
	workers      []Worker
	runRepo      *repositories.GenerationRunRepository
	executor     RunExecutor
	workerCount  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(runRepo *repositories.GenerationRunRepository, executor RunExecutor, workerCount int, pollInterval time.Duration) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount < 0 {
		workerCount = 0
	}
	return &WorkerManager{
		workers:      make([]Worker, 0, workerCount),
		runRepo:      runRepo,
		executor:     executor,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// StartAll starts the configured number of generation workers
func (wm *WorkerManager) StartAll() error {
	logger.Infof("Starting workers - Generation: %d", wm.workerCount)

	for i := 0; i < wm.workerCount; i++ {
		worker := NewGenerationWorker(fmt.Sprintf("generation-%d", i+1), wm.runRepo, wm.executor, wm.pollInterval)
		wm.workers = append(wm.workers, worker)
		wm.startWorker(worker)
	}

	logger.Infof("Started %d total workers", len(wm.workers))
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	logger.Info("Stopping all workers...")

	// Cancel the context to signal all workers to stop
	wm.cancel()

	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("Error stopping worker %s", worker.GetWorkerID())
		}
	}

	wm.wg.Wait()

	logger.Info("All workers stopped")
	return nil
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("Worker %s stopped with error", worker.GetWorkerID())
		}
	}()
}

// GetWorkerStatus returns the status of all workers
func (wm *WorkerManager) GetWorkerStatus() map[string]bool {
	status := make(map[string]bool, len(wm.workers))
	for _, worker := range wm.workers {
		status[worker.GetWorkerID()] = worker.IsRunning()
	}
	return status
}
