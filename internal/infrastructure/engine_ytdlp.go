package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/pkg/logger"
	"go.uber.org/zap"
)

var downloadPercent = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// YTDLPEngine implements domain.MediaEngine by running yt-dlp
type YTDLPEngine struct {
	config      *domain.YTDLPConfig
	logsDir     string
	eventLogger *logger.MultiLogger
}

// NewYTDLPEngine creates a yt-dlp backed media engine; raw tool output goes to logsDir
func NewYTDLPEngine(config *domain.YTDLPConfig, logsDir string, eventLogger *logger.MultiLogger) *YTDLPEngine {
	return &YTDLPEngine{
		config:      config,
		logsDir:     logsDir,
		eventLogger: eventLogger,
	}
}

// SearchQuery builds the yt-dlp search for a track
func SearchQuery(title, artists string) string {
	return fmt.Sprintf(`ytsearch1:"%s %s official audio"`, title, artists)
}

// Args returns the yt-dlp arguments for one fetch
func (e *YTDLPEngine) Args(query, outputTemplate string) []string {
	return []string{
		"--newline",
		"--no-playlist",
		"--no-cache-dir",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", e.config.AudioFormat,
		"--audio-quality", e.config.AudioQuality,
		"-o", outputTemplate,
		query,
	}
}

// Fetch downloads the first search match for query and stores it at outputPath
func (e *YTDLPEngine) Fetch(ctx context.Context, jobID, query, outputPath string, progress domain.ProgressFunc) error {
	if progress == nil {
		progress = func(float64) {}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// yt-dlp picks the extension; the job id keeps concurrent jobs apart
	tmpBase := filepath.Join(dir, "."+jobID)
	args := e.Args(query, tmpBase+".%(ext)s")

	jobLog, err := e.openLogFile(jobID)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer jobLog.Close()

	writeLogHeader(jobLog, jobID, CommandLine(e.config.Binary, args...))

	cmd := exec.CommandContext(ctx, e.config.Binary, args...)
	cmd.Stderr = jobLog
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to capture yt-dlp output: %w", err)
	}

	if err := cmd.Start(); err != nil {
		writeLogFooter(jobLog, false, fmt.Sprintf("yt-dlp could not start: %v", err))
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	scanProgress(io.TeeReader(stdout, jobLog), progress)

	if err := cmd.Wait(); err != nil {
		writeLogFooter(jobLog, false, fmt.Sprintf("yt-dlp failed: %v", err))
		if e.eventLogger != nil {
			e.eventLogger.LogAppError("yt-dlp failed", zap.String("download_id", jobID), zap.Error(err))
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}

	produced := tmpBase + "." + e.config.AudioFormat
	if _, err := os.Stat(produced); err != nil {
		writeLogFooter(jobLog, false, "no audio file produced")
		return fmt.Errorf("no audio file produced for %q", query)
	}

	if err := os.Rename(produced, outputPath); err != nil {
		writeLogFooter(jobLog, false, fmt.Sprintf("rename failed: %v", err))
		return fmt.Errorf("failed to move audio file: %w", err)
	}

	writeLogFooter(jobLog, true, outputPath)
	return nil
}

// scanProgress reports every "[download] NN.N%" line as a fraction
func scanProgress(r io.Reader, progress domain.ProgressFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if fraction, ok := parseProgressLine(scanner.Text()); ok {
			progress(fraction)
		}
	}
	// drain so yt-dlp never blocks on a full pipe
	io.Copy(io.Discard, r)
}

func parseProgressLine(line string) (float64, bool) {
	m := downloadPercent.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if percent > 100 {
		percent = 100
	}
	return percent / 100, true
}

// openLogFile opens the raw output log for one job
func (e *YTDLPEngine) openLogFile(jobID string) (*os.File, error) {
	if err := os.MkdirAll(e.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return os.OpenFile(JobLogPath(e.logsDir, jobID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// JobLogPath is the raw yt-dlp output file for a job
func JobLogPath(logsDir, jobID string) string {
	return filepath.Join(logsDir, "ytdlp-"+jobID+".log")
}

func writeLogHeader(w io.Writer, jobID, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] Job: %s ===\n", timestamp, jobID)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

func writeLogFooter(w io.Writer, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}
