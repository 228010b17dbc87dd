package app

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/internal/infrastructure"
	"github.com/yourusername/trackfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// artifactRoute is the URL prefix finished files are served under
const artifactRoute = "download"

// Progress milestones reported while a job runs
const (
	progressSearching   = 10
	progressDownloading = 20
	progressTransferred = 70 // share of the bar covered by the media transfer
)

// JobManager runs the download pipeline for server-side jobs
type JobManager struct {
	repo        domain.JobRepository
	catalog     domain.TrackCatalog
	engine      domain.MediaEngine
	tagger      domain.TrackTagger
	notifier    *infrastructure.NotificationService
	config      *domain.DownloadConfig
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	semaphore   chan struct{}
}

// NewJobManager creates a new job manager
func NewJobManager(
	repo domain.JobRepository,
	catalog domain.TrackCatalog,
	engine domain.MediaEngine,
	tagger domain.TrackTagger,
	notifier *infrastructure.NotificationService,
	config *domain.DownloadConfig,
	multiLogger *logger.MultiLogger,
	log *zap.Logger,
) *JobManager {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &JobManager{
		repo:        repo,
		catalog:     catalog,
		engine:      engine,
		tagger:      tagger,
		notifier:    notifier,
		config:      config,
		multiLogger: multiLogger,
		logger:      log,
		semaphore:   make(chan struct{}, limit),
	}
}

// Lookup returns preview metadata for a track link
func (jm *JobManager) Lookup(ctx context.Context, url string) (*domain.TrackMetadata, error) {
	return jm.catalog.Lookup(ctx, url)
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(id string) (*domain.Job, error) {
	return jm.repo.FindByID(id)
}

// ProcessJob runs one job to a terminal state. At most download.concurrent_limit
// jobs run at once; the rest wait here.
func (jm *JobManager) ProcessJob(ctx context.Context, job *domain.Job) error {
	select {
	case jm.semaphore <- struct{}{}:
		defer func() { <-jm.semaphore }()
	case <-ctx.Done():
		return ctx.Err()
	}

	jm.logger.Info("Processing job",
		zap.String("download_id", job.ID),
		zap.String("url", job.URL),
		zap.String("folder", job.Folder))

	job.MarkProcessing()
	if err := jm.repo.Update(job); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	if err := jm.run(ctx, job); err != nil {
		jm.fail(job, err)
		return err
	}
	return nil
}

func (jm *JobManager) run(ctx context.Context, job *domain.Job) error {
	meta, err := jm.catalog.Lookup(ctx, job.URL)
	if err != nil {
		return fmt.Errorf("track lookup failed: %w", err)
	}
	job.Title = meta.Title
	job.Artist = meta.Artist

	folder, err := domain.DestinationFolder(job.Folder)
	if err != nil {
		return err
	}
	fileName := domain.ExpectedFileName(meta.Title, meta.Artist)
	outputPath, err := jm.outputPath(folder, fileName)
	if err != nil {
		return err
	}
	fileURL := path.Join(artifactRoute, folder, fileName)

	if _, err := os.Stat(outputPath); err == nil {
		jm.complete(job, outputPath, fileURL, "File already exists.")
		return nil
	}

	if err := jm.step(job, progressSearching, "Searching YouTube..."); err != nil {
		return err
	}
	if err := jm.step(job, progressDownloading, "Starting download..."); err != nil {
		return err
	}

	query := infrastructure.SearchQuery(meta.Title, meta.Artist)
	err = jm.engine.Fetch(ctx, job.ID, query, outputPath, func(fraction float64) {
		percent := progressDownloading + int(progressTransferred*fraction)
		if percent <= job.Progress {
			return
		}
		if err := jm.step(job, percent, fmt.Sprintf("Downloading: %.1f%%", fraction*100)); err != nil {
			jm.logger.Warn("Progress update failed", zap.String("download_id", job.ID), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	if jm.tagger != nil {
		if err := jm.tagger.Tag(ctx, outputPath, meta); err != nil {
			jm.logger.Warn("Tagging failed", zap.String("download_id", job.ID), zap.Error(err))
		}
	}

	jm.complete(job, outputPath, fileURL, "Download complete!")
	return nil
}

// outputPath joins a file below the download root, refusing anything that lands outside it
func (jm *JobManager) outputPath(folder, fileName string) (string, error) {
	base, err := filepath.Abs(jm.config.BaseDir)
	if err != nil {
		return "", err
	}
	full := filepath.Join(base, folder, fileName)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrInvalidFolder
	}
	return full, nil
}

func (jm *JobManager) step(job *domain.Job, progress int, debug string) error {
	job.SetProgress(progress, debug)
	if err := jm.repo.Update(job); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (jm *JobManager) complete(job *domain.Job, filePath, fileURL, debug string) {
	job.MarkCompleted(filePath, fileURL, debug)
	if err := jm.repo.Update(job); err != nil {
		jm.logger.Error("Failed to update job status", zap.String("download_id", job.ID), zap.Error(err))
	}

	jm.logger.Info("Job completed",
		zap.String("download_id", job.ID),
		zap.String("file", filePath))
	if jm.multiLogger != nil {
		jm.multiLogger.LogJobEvent("job_completed",
			zap.String("download_id", job.ID),
			zap.String("title", job.Title),
			zap.String("artist", job.Artist),
			zap.String("file_url", fileURL))
	}
	jm.notifier.NotifyJobCompleted(job)
}

func (jm *JobManager) fail(job *domain.Job, err error) {
	job.MarkFailed(err)
	if updateErr := jm.repo.Update(job); updateErr != nil {
		jm.logger.Error("Failed to update job status", zap.String("download_id", job.ID), zap.Error(updateErr))
	}

	jm.logger.Error("Job failed", zap.String("download_id", job.ID), zap.Error(err))
	if jm.multiLogger != nil {
		jm.multiLogger.LogJobEvent("job_failed",
			zap.String("download_id", job.ID),
			zap.String("error", err.Error()))
		jm.multiLogger.LogAppError("Job failed",
			zap.String("download_id", job.ID),
			zap.Error(err))
	}
	jm.notifier.NotifyJobFailed(job, err)
}

// ArtifactPath maps a path below the artifact route to a file inside the download directory
func (jm *JobManager) ArtifactPath(ref string) (string, error) {
	ref = strings.TrimLeft(ref, "/")
	if ref == "" {
		return "", domain.ErrInvalidArtifactPath
	}

	base, err := filepath.Abs(jm.config.BaseDir)
	if err != nil {
		return "", err
	}
	full := filepath.Join(base, filepath.FromSlash(ref))

	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrInvalidArtifactPath
	}
	return full, nil
}
