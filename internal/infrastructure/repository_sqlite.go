package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// orphanedJobReason is recorded on jobs interrupted by a server restart
const orphanedJobReason = "download interrupted by server restart"

// filterColumns are the columns FindAll accepts as filters
var filterColumns = map[string]bool{
	"status": true,
	"folder": true,
	"url":    true,
}

// SQLiteJobRepository implements domain.JobRepository using SQLite
type SQLiteJobRepository struct {
	db *gorm.DB
}

// NewSQLiteJobRepository opens (and migrates) the job database at dbPath
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Job{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Create creates a new job
func (r *SQLiteJobRepository) Create(job *domain.Job) error {
	return r.db.Create(job).Error
}

// Update updates an existing job
func (r *SQLiteJobRepository) Update(job *domain.Job) error {
	return r.db.Save(job).Error
}

// FindByID finds a job by ID
func (r *SQLiteJobRepository) FindByID(id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindPending finds queued jobs, oldest first
func (r *SQLiteJobRepository) FindPending() ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := r.db.Where("status = ?", domain.StatusQueued).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// FindAll finds jobs matching the given column filters, newest first
func (r *SQLiteJobRepository) FindAll(filters map[string]interface{}) ([]*domain.Job, error) {
	var jobs []*domain.Job
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&jobs).Error
	return jobs, err
}

// ResetOrphanedProcessing fails every job still marked processing
func (r *SQLiteJobRepository) ResetOrphanedProcessing() (int64, error) {
	result := r.db.Model(&domain.Job{}).
		Where("status = ?", domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_message": orphanedJobReason,
			"debug":         "Error: " + orphanedJobReason,
			"progress":      100,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// GetStats returns job counts by status
func (r *SQLiteJobRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.Job{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.JobStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// Ping checks that the database is reachable
func (r *SQLiteJobRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func (r *SQLiteJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
