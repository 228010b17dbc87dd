package domain

// JobRepository defines the interface for job persistence
type JobRepository interface {
	// Create creates a new job
	Create(job *Job) error

	// Update updates an existing job
	Update(job *Job) error

	// FindByID finds a job by ID, returning ErrJobNotFound when absent
	FindByID(id string) (*Job, error)

	// FindPending finds all queued jobs ordered by creation time
	FindPending() ([]*Job, error)

	// FindAll finds all jobs with optional filters
	FindAll(filters map[string]interface{}) ([]*Job, error)

	// ResetOrphanedProcessing fails jobs left in processing by a previous run
	ResetOrphanedProcessing() (int64, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)
}

// JobStats represents job statistics
type JobStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
