package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/trackfetch-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// An explicit config path wins
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.trackfetch")
		v.AddConfigPath("/etc/trackfetch")
	}

	// Read environment variables
	v.SetEnvPrefix("TRACKFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Spotify credentials are also accepted under their conventional names
	_ = v.BindEnv("spotify.client_id", "TRACKFETCH_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID")
	_ = v.BindEnv("spotify.client_secret", "TRACKFETCH_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET")

	// AutomaticEnv only applies to keys viper already knows about
	registerDefaults(v, config)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ and environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// registerDefaults seeds viper with every key of the default config
func registerDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)
	v.SetDefault("client.server_url", config.Client.ServerURL)
	v.SetDefault("client.request_timeout", config.Client.RequestTimeout)
	v.SetDefault("client.base_path", config.Client.BasePath)
	v.SetDefault("client.player_binary", config.Client.PlayerBinary)
	v.SetDefault("client.player_args", config.Client.PlayerArgs)
	v.SetDefault("poll.interval", config.Poll.Interval)
	v.SetDefault("poll.max_attempts", config.Poll.MaxAttempts)
	v.SetDefault("poll.max_duration", config.Poll.MaxDuration)
	v.SetDefault("download.base_dir", config.Download.BaseDir)
	v.SetDefault("download.logs_dir", config.Download.LogsDir)
	v.SetDefault("download.concurrent_limit", config.Download.ConcurrentLimit)
	v.SetDefault("download.auto_start_workers", config.Download.AutoStartWorkers)
	v.SetDefault("queue.database_path", config.Queue.DatabasePath)
	v.SetDefault("queue.check_interval", config.Queue.CheckInterval)
	v.SetDefault("spotify.token_url", config.Spotify.TokenURL)
	v.SetDefault("spotify.api_base_url", config.Spotify.APIBaseURL)
	v.SetDefault("ytdlp.binary", config.YTDLP.Binary)
	v.SetDefault("ytdlp.audio_format", config.YTDLP.AudioFormat)
	v.SetDefault("ytdlp.audio_quality", config.YTDLP.AudioQuality)
	v.SetDefault("notification.enabled", config.Notification.Enabled)
	v.SetDefault("notification.sound", config.Notification.Sound)
	v.SetDefault("notification.method", config.Notification.Method)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
	v.SetDefault("cors.allow_origins", config.CORS.AllowOrigins)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Replace $HOME before the generic expansion sees it
	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Client.ServerURL == "" {
		return fmt.Errorf("client server url not configured")
	}

	if config.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if config.Poll.MaxAttempts < 0 || config.Poll.MaxDuration < 0 {
		return fmt.Errorf("poll ceilings cannot be negative")
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.YTDLP.Binary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Client.BasePath == "" {
		config.Client.BasePath = "/"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Marshal config to viper
	v.Set("server", config.Server)
	v.Set("client", config.Client)
	v.Set("poll", config.Poll)
	v.Set("download", config.Download)
	v.Set("queue", config.Queue)
	v.Set("spotify", config.Spotify)
	v.Set("ytdlp", config.YTDLP)
	v.Set("notification", config.Notification)
	v.Set("logging", config.Logging)
	v.Set("cors", config.CORS)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
