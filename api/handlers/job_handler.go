package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// JobQueue accepts and reports server-side jobs
type JobQueue interface {
	AddJob(url, folder string) (*domain.Job, error)
	GetJob(id string) (*domain.Job, error)
	ListJobs(filters map[string]interface{}) ([]*domain.Job, error)
	GetStats() (*domain.JobStats, error)
}

// TrackService looks up tracks and locates finished files
type TrackService interface {
	Lookup(ctx context.Context, url string) (*domain.TrackMetadata, error)
	ArtifactPath(ref string) (string, error)
}

// JobHandler serves the download contract used by the CLI and browsers
type JobHandler struct {
	queue  JobQueue
	tracks TrackService
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(queue JobQueue, tracks TrackService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		queue:  queue,
		tracks: tracks,
		logger: logger,
	}
}

// StartJobRequest is the body of POST /download
type StartJobRequest struct {
	URL    string `json:"url"`
	Folder string `json:"folder"`
}

// GetMetadata handles GET /get_metadata
func (h *JobHandler) GetMetadata(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url not provided"})
		return
	}

	meta, err := h.tracks.Lookup(c.Request.Context(), url)
	if err != nil {
		h.logger.Error("Failed to fetch metadata", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, meta)
}

// StartJob handles POST /download
func (h *JobHandler) StartJob(c *gin.Context) {
	var req StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.queue.AddJob(strings.TrimSpace(req.URL), strings.TrimSpace(req.Folder))
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedSource) || errors.Is(err, domain.ErrInvalidFolder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to add job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "download_id": job.ID})
}

// Progress handles GET /progress
func (h *JobHandler) Progress(c *gin.Context) {
	id := c.Query("download_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "download_id not provided"})
		return
	}

	job, err := h.queue.GetJob(id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to load job", zap.String("download_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job.Snapshot())
}

// ServeArtifact handles GET /download/*file
func (h *JobHandler) ServeArtifact(c *gin.Context) {
	path, err := h.tracks.ArtifactPath(c.Param("file"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.Header("Content-Type", "audio/mpeg")
	c.FileAttachment(path, filepath.Base(path))
}

// ListJobs handles GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if folder := c.Query("folder"); folder != "" {
		filters["folder"] = folder
	}

	jobs, err := h.queue.ListJobs(filters)
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// GetStats handles GET /jobs/stats
func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.queue.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
