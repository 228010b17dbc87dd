package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// CommandRunner runs an external notifier command
type CommandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    CommandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// WithRunner replaces the command runner
func (n *NotificationService) WithRunner(run CommandRunner) *NotificationService {
	n.run = run
	return n
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if n == nil || !n.config.Enabled {
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
		if n.config.Sound {
			script += ` sound name "Glass"`
		}
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", "--app-name=trackfetch", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent", zap.String("title", title))
	return nil
}

// NotifyJobCompleted announces a finished track
func (n *NotificationService) NotifyJobCompleted(job *domain.Job) {
	n.Send("Download Completed", fmt.Sprintf("%s - %s", truncateString(job.Title, 40), truncateString(job.Artist, 30)))
}

// NotifyJobFailed announces a failed job
func (n *NotificationService) NotifyJobFailed(job *domain.Job, err error) {
	subject := job.Title
	if subject == "" {
		subject = job.URL
	}
	n.Send("Download Failed", fmt.Sprintf("%s: %v", truncateString(subject, 40), err))
}

func appleScriptString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// truncateString truncates a string to at most maxLen runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
