package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobHandle identifies one server-side job for the client
type JobHandle struct {
	JobID string `json:"download_id"`
}

// ProgressSnapshot is one job status response
type ProgressSnapshot struct {
	Percent   float64 `json:"progress"`
	Completed bool    `json:"completed"`
	FileRef   string  `json:"fileUrl,omitempty"`
	Error     string  `json:"error,omitempty"`
	Debug     string  `json:"debug,omitempty"`
}

// Failed reports whether the snapshot carries an error
func (s *ProgressSnapshot) Failed() bool {
	return s.Error != ""
}

// JobStatus represents the current status of a job on the server
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is the server-side record of a download task
type Job struct {
	ID           string     `json:"download_id" gorm:"primaryKey"`
	URL          string     `json:"url" gorm:"not null"`
	Folder       string     `json:"folder"`
	Status       JobStatus  `json:"status" gorm:"not null;index"`
	Progress     int        `json:"progress"`
	Title        string     `json:"title,omitempty"`
	Artist       string     `json:"artist,omitempty"`
	FilePath     string     `json:"-"`
	FileURL      string     `json:"fileUrl,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	Debug        string     `json:"debug,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a queued job
func NewJob(url, folder string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		URL:       url,
		Folder:    folder,
		Status:    StatusQueued,
		Progress:  0,
		Debug:     "Preparing download...",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing marks the job as processing
func (j *Job) MarkProcessing() {
	j.Status = StatusProcessing
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// SetProgress records an intermediate step
func (j *Job) SetProgress(progress int, debug string) {
	j.Progress = progress
	j.Debug = debug
	j.UpdatedAt = time.Now()
}

// MarkCompleted marks the job as completed
func (j *Job) MarkCompleted(filePath, fileURL, debug string) {
	j.Status = StatusCompleted
	j.FilePath = filePath
	j.FileURL = fileURL
	j.Progress = 100
	j.Debug = debug
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed marks the job as failed; progress is pinned at 100 so clients stop waiting
func (j *Job) MarkFailed(err error) {
	j.Status = StatusFailed
	j.ErrorMessage = err.Error()
	j.Debug = "Error: " + err.Error()
	j.Progress = 100
	j.UpdatedAt = time.Now()
}

// IsTerminal checks if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsPending checks if the job is waiting for a worker
func (j *Job) IsPending() bool {
	return j.Status == StatusQueued
}

// Snapshot renders the job as the status response clients poll for
func (j *Job) Snapshot() *ProgressSnapshot {
	return &ProgressSnapshot{
		Percent:   float64(j.Progress),
		Completed: j.Status == StatusCompleted,
		FileRef:   j.FileURL,
		Error:     j.ErrorMessage,
		Debug:     j.Debug,
	}
}
