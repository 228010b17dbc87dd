package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/pkg/logger"
)

// QueueManager hands queued jobs to the job manager
type QueueManager struct {
	repo        domain.JobRepository
	jobMgr      *JobManager
	config      *domain.QueueConfig
	multiLogger *logger.MultiLogger

	mu       sync.RWMutex
	running  bool
	inFlight map[string]bool
	stopChan chan struct{}
	wake     chan struct{}
	workerWg sync.WaitGroup
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.JobRepository,
	jobMgr *JobManager,
	config *domain.QueueConfig,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	return &QueueManager{
		repo:        repo,
		jobMgr:      jobMgr,
		config:      config,
		multiLogger: multiLogger,
		inFlight:    make(map[string]bool),
		stopChan:    make(chan struct{}),
		wake:        make(chan struct{}, 1),
	}
}

// Start starts the queue processor
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.mu.Unlock()

	qm.logEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)

	return nil
}

// Stop stops the queue processor and waits for running jobs
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	qm.mu.Unlock()

	qm.logEvent("queue_stopped")
	close(qm.stopChan)
	qm.workerWg.Wait()

	return nil
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// AddJob stores a queued job for url and wakes the processor
func (qm *QueueManager) AddJob(url, folder string) (*domain.Job, error) {
	if !domain.IsSupportedSource(url) {
		return nil, domain.ErrUnsupportedSource
	}
	if _, err := domain.DestinationFolder(folder); err != nil {
		return nil, err
	}

	job := domain.NewJob(url, folder)
	if err := qm.repo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	qm.logEvent("job_added",
		zap.String("download_id", job.ID),
		zap.String("url", url),
		zap.String("folder", folder))

	select {
	case qm.wake <- struct{}{}:
	default:
	}

	return job, nil
}

// GetJob retrieves a job by ID
func (qm *QueueManager) GetJob(id string) (*domain.Job, error) {
	return qm.repo.FindByID(id)
}

// ListJobs lists jobs with optional filters
func (qm *QueueManager) ListJobs(filters map[string]interface{}) ([]*domain.Job, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns queue statistics
func (qm *QueueManager) GetStats() (*domain.JobStats, error) {
	return qm.repo.GetStats()
}

func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	interval := qm.config.CheckInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			qm.logEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-qm.stopChan:
			qm.logEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
		case <-qm.wake:
		}

		pending, err := qm.repo.FindPending()
		if err != nil {
			if qm.multiLogger != nil {
				qm.multiLogger.LogAppError("Failed to fetch pending jobs", zap.Error(err))
			}
			continue
		}

		for _, job := range pending {
			if !qm.claim(job.ID) {
				continue
			}

			qm.logEvent("job_started", zap.String("download_id", job.ID), zap.String("url", job.URL))

			// JobManager's semaphore bounds how many of these run at once
			qm.workerWg.Add(1)
			go func(job *domain.Job) {
				defer qm.workerWg.Done()
				defer qm.release(job.ID)

				// failures are recorded on the job by ProcessJob
				if err := qm.jobMgr.ProcessJob(ctx, job); err != nil && ctx.Err() != nil {
					qm.logEvent("job_interrupted", zap.String("download_id", job.ID), zap.Error(err))
				}
			}(job)
		}
	}
}

// claim marks a job as handed to a worker; false when it already is
func (qm *QueueManager) claim(id string) bool {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	if qm.inFlight[id] {
		return false
	}
	qm.inFlight[id] = true
	return true
}

func (qm *QueueManager) release(id string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.inFlight, id)
}

func (qm *QueueManager) logEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogJobEvent(event, fields...)
	}
}
