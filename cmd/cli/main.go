package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/trackfetch-go/internal/app"
	"github.com/yourusername/trackfetch-go/internal/client"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/internal/infrastructure"
	"github.com/yourusername/trackfetch-go/pkg/logger"
)

var (
	serverURL   string
	configPath  string
	noAutoStart bool
	verbose     bool
	rootCmd     = &cobra.Command{
		Use:           "trackfetch",
		Short:         "Trackfetch CLI - download Spotify tracks through a trackfetch server",
		Long:          `Looks up a Spotify track, asks the server to download it and follows the job until the file is ready.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server URL (default from config: http://localhost:5000)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	fetchCmd.Flags().StringP("dest", "d", "", "Folder on the server to save the track in (required)")
	fetchCmd.Flags().String("save", "", "Also copy the finished file into this local directory")
	fetchCmd.Flags().Bool("play", false, "Play the finished file")
	fetchCmd.Flags().BoolP("yes", "y", false, "Don't wait for Enter before finishing")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(statusCmd)
}

// session bundles what every command needs
type session struct {
	config  *domain.Config
	log     *zap.Logger
	backend *client.Backend
}

func newSession(ctx context.Context) (*session, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		config.Client.ServerURL = serverURL
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, err
	}

	backend, err := client.NewBackend(config.Client.ServerURL, config.Client.RequestTimeout, log)
	if err != nil {
		return nil, err
	}

	if !noAutoStart {
		if err := ensureServerRunning(ctx, backend, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	return &session{config: config, log: log, backend: backend}, nil
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [spotify-track-url]",
	Short: "Download a track and wait for the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.log.Sync()

		dest, _ := cmd.Flags().GetString("dest")
		saveDir, _ := cmd.Flags().GetString("save")
		play, _ := cmd.Flags().GetBool("play")
		yes, _ := cmd.Flags().GetBool("yes")

		var desktop *infrastructure.NotificationService
		if s.config.Notification.Enabled {
			desktop = infrastructure.NewNotificationService(&s.config.Notification, s.log)
		}
		notifier := newTerminalNotifier(os.Stdout, os.Stdin, !yes, desktop)

		controller := app.NewController(app.ControllerOptions{
			Backend:  s.backend,
			View:     newTerminalView(os.Stdout),
			Notifier: notifier,
			Media:    newCommandMedia(ctx, s.config.Client.PlayerBinary, s.config.Client.PlayerArgs, s.backend.ArtifactURL, s.log),
			Poll:     s.config.Poll,
			BasePath: s.config.Client.BasePath,
			Logger:   s.log,
		})
		defer controller.Close()

		if err := controller.Submit(ctx, args[0], dest); err != nil {
			return err
		}

		outcome, err := controller.Wait(ctx)
		if err != nil {
			return err
		}

		if saveDir != "" {
			target := filepath.Join(saveDir, outcome.FileName)
			if err := saveArtifact(ctx, s.backend, outcome.Href, target); err != nil {
				return fmt.Errorf("failed to save %s: %w", target, err)
			}
			fmt.Printf("Saved to %s\n", target)
		}

		if play {
			// playback failures were already reported by the player
			if err := controller.Player().OnPlay(); err != nil && !errors.As(err, new(*domain.PlaybackError)) {
				return err
			}
		}

		notifier.Acknowledge()
		return nil
	},
}

// saveArtifact copies a finished file from the server with a byte progress bar
func saveArtifact(ctx context.Context, backend *client.Backend, href, target string) error {
	body, size, err := backend.OpenArtifact(ctx, href)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	tmp := target + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(size, "Saving")
	_, err = io.Copy(io.MultiWriter(file, bar), body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, target)
}

var metaCmd = &cobra.Command{
	Use:   "meta [spotify-track-url]",
	Short: "Show track metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}

		req, err := domain.Validate(args[0], "-")
		if err != nil {
			return err
		}

		meta, err := s.backend.FetchMetadata(cmd.Context(), req.URL)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Title:\t%s\n", meta.Title)
		fmt.Fprintf(w, "Artist:\t%s\n", meta.Artist)
		fmt.Fprintf(w, "Duration:\t%s\n", meta.Duration)
		if meta.CoverURL != "" {
			fmt.Fprintf(w, "Cover:\t%s\n", meta.CoverURL)
		}
		if meta.PreviewURL != "" {
			fmt.Fprintf(w, "Preview:\t%s\n", meta.PreviewURL)
		}
		fmt.Fprintf(w, "File:\t%s\n", domain.DownloadFileName(meta.Title))
		return w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [download-id]",
	Short: "Show the progress of a download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}

		snap, err := s.backend.JobStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Progress:  %.0f%%\n", snap.Percent)
		fmt.Printf("Completed: %t\n", snap.Completed)
		if snap.Debug != "" {
			fmt.Printf("Step:      %s\n", snap.Debug)
		}
		if snap.FileRef != "" {
			fmt.Printf("File:      %s\n", s.backend.ArtifactURL(domain.ResolveArtifact(s.config.Client.BasePath, snap.FileRef)))
		}
		if snap.Failed() {
			return errors.New(snap.Error)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
