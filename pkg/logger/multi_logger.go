package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryJob   LogCategory = "job"   // Job lifecycle events (JSON)
	CategoryError LogCategory = "error" // Application errors (JSON)
)

// Categories lists every category with its own daily file
var Categories = []LogCategory{CategoryJob, CategoryError}

// ValidCategory reports whether c names a known category
func ValidCategory(c LogCategory) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger writes job lifecycle events and application errors to separate
// daily JSON files. Raw yt-dlp output goes to per-job files written by the engine.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   map[LogCategory]*os.File
	config  MultiLoggerConfig
	level   zapcore.Level
	mu      sync.RWMutex
	date    string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	// Ensure logs directory exists
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Parse log level
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		config: config,
		level:  level,
	}

	// Open today's files for every category
	if err := ml.open(time.Now()); err != nil {
		return nil, err
	}

	return ml, nil
}

// open (re)creates the category loggers for the given day
func (ml *MultiLogger) open(now time.Time) error {
	loggers := make(map[LogCategory]*zap.Logger, len(Categories))
	files := make(map[LogCategory]*os.File, len(Categories))

	for _, category := range Categories {
		// Errors are recorded regardless of the configured level
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}

		file, err := os.OpenFile(LogPath(ml.config.LogsDir, category, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}

		files[category] = file
		loggers[category] = zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(file), level))
	}

	// Swap in the new day's loggers and release yesterday's files
	previous := ml.files
	ml.loggers = loggers
	ml.files = files
	ml.date = now.Format("20060102")

	for _, f := range previous {
		f.Close()
	}
	return nil
}

// jsonEncoder builds the encoder shared by every category file
func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "" // Don't include caller for cleaner logs
	return zapcore.NewJSONEncoder(encoderConfig)
}

// LogPath returns the daily file for a category
func LogPath(logsDir string, category LogCategory, date time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", category, date.Format("20060102")))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the logger for a category, switching files at midnight
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	now := time.Now()

	ml.mu.RLock()
	stale := ml.date != now.Format("20060102")
	ml.mu.RUnlock()

	if stale {
		ml.mu.Lock()
		if ml.date != now.Format("20060102") {
			if err := ml.open(now); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			}
		}
		ml.mu.Unlock()
	}

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}

	// Return error logger as fallback
	return ml.loggers[CategoryError]
}

// Job returns the job event logger
func (ml *MultiLogger) Job() *zap.Logger {
	return ml.GetLogger(CategoryJob)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogJobEvent logs a job lifecycle event with structured data
func (ml *MultiLogger) LogJobEvent(event string, fields ...zap.Field) {
	ml.Job().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for category, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
		if f := ml.files[category]; f != nil {
			if err := f.Close(); err != nil {
				lastErr = err
			}
		}
	}
	ml.files = nil
	return lastErr
}
