package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/trackfetch-go/api"
	"github.com/yourusername/trackfetch-go/api/handlers"
	"github.com/yourusername/trackfetch-go/internal/app"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/internal/infrastructure"
	"github.com/yourusername/trackfetch-go/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath string
	daemon     bool
	rootCmd    = &cobra.Command{
		Use:          "trackfetch-server",
		Short:        "Trackfetch job server",
		Long:         `Looks up Spotify tracks, downloads matching audio with yt-dlp and serves the finished files.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				return startAsDaemon()
			}
			return runServer(cmd.Context())
		},
	}
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file (default: ./configs/config.yaml, ~/.trackfetch/config.yaml)")
	rootCmd.Flags().BoolVar(&daemon, "daemon", false, "Run the server in the background")
}

// startAsDaemon re-executes the server detached from the terminal
func startAsDaemon() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Env = os.Environ()
	if cwd, err := os.Getwd(); err == nil {
		cmd.Dir = cwd
	}
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	return nil
}

func runServer(parent context.Context) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if config.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := createDirectories(config); err != nil {
		return err
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize event logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting trackfetch server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir))

	repo, err := infrastructure.NewSQLiteJobRepository(config.Queue.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	if reset, err := repo.ResetOrphanedProcessing(); err != nil {
		log.Warn("Failed to reset interrupted jobs", zap.Error(err))
	} else if reset > 0 {
		log.Info("Marked interrupted jobs as failed", zap.Int64("count", reset))
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := infrastructure.NewSpotifyCatalog(ctx, &config.Spotify, log)
	engine := infrastructure.NewYTDLPEngine(&config.YTDLP, config.Download.LogsDir, multiLog)
	tagger := infrastructure.NewID3Tagger(log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	jobMgr := app.NewJobManager(repo, catalog, engine, tagger, notifier, &config.Download, multiLog, log)
	queueMgr := app.NewQueueManager(repo, jobMgr, &config.Queue, multiLog)

	router := api.SetupRouter(api.RouterDeps{
		Queue:        queueMgr,
		Jobs:         jobMgr,
		Store:        repo,
		MultiLogger:  multiLog,
		Logger:       log,
		AllowOrigins: config.CORS.AllowOrigins,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return serve(ctx, listener, router, queueMgr, config.Download.AutoStartWorkers, log)
}

// workerQueue is the part of the queue manager the server lifecycle drives
type workerQueue interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// serve runs the HTTP server on listener until ctx is cancelled, then stops
// the queue and drains in-flight requests
func serve(ctx context.Context, listener net.Listener, handler http.Handler, queue workerQueue, autoStart bool, log *zap.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if autoStart {
		if err := queue.Start(gctx); err != nil {
			listener.Close()
			return fmt.Errorf("failed to start queue manager: %w", err)
		}
	}

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if queue.IsRunning() {
			if err := queue.Stop(); err != nil {
				log.Error("Error stopping queue manager", zap.Error(err))
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.LogsDir,
		filepath.Dir(config.Queue.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
