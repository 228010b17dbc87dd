package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Client       ClientConfig       `mapstructure:"client"`
	Poll         PollConfig         `mapstructure:"poll"`
	Download     DownloadConfig     `mapstructure:"download"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Spotify      SpotifyConfig      `mapstructure:"spotify"`
	YTDLP        YTDLPConfig        `mapstructure:"ytdlp"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	CORS         CORSConfig         `mapstructure:"cors"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ClientConfig contains settings used by the CLI controller when talking to the server
type ClientConfig struct {
	ServerURL      string        `mapstructure:"server_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	BasePath       string        `mapstructure:"base_path"` // root that relative fileUrl values resolve against
	PlayerBinary   string        `mapstructure:"player_binary"`
	PlayerArgs     []string      `mapstructure:"player_args"`
}

// PollConfig bounds the progress poller
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"` // 0 disables the attempt ceiling
	MaxDuration time.Duration `mapstructure:"max_duration"` // 0 disables the wall-clock ceiling
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir          string `mapstructure:"base_dir"`
	LogsDir          string `mapstructure:"logs_dir"`
	ConcurrentLimit  int    `mapstructure:"concurrent_limit"`
	AutoStartWorkers bool   `mapstructure:"auto_start_workers"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// SpotifyConfig contains credentials and endpoints for the track catalog
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
}

// YTDLPConfig contains yt-dlp specific configuration
type YTDLPConfig struct {
	Binary       string `mapstructure:"binary"`
	AudioFormat  string `mapstructure:"audio_format"`
	AudioQuality string `mapstructure:"audio_quality"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// CORSConfig lists the origins allowed to call the API from a browser
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 5000,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:5000",
			RequestTimeout: 30 * time.Second,
			BasePath:       "/",
			PlayerBinary:   "ffplay",
			PlayerArgs:     []string{"-nodisp", "-autoexit", "-loglevel", "error"},
		},
		Poll: PollConfig{
			Interval:    1 * time.Second,
			MaxAttempts: 600,
			MaxDuration: 15 * time.Minute,
		},
		Download: DownloadConfig{
			BaseDir:          "$HOME/Music/trackfetch",
			LogsDir:          "$HOME/Music/trackfetch/.logs",
			ConcurrentLimit:  2,
			AutoStartWorkers: true,
		},
		Queue: QueueConfig{
			DatabasePath:  "$HOME/Music/trackfetch/.jobs.db",
			CheckInterval: 2 * time.Second,
		},
		Spotify: SpotifyConfig{
			TokenURL:   "https://accounts.spotify.com/api/token",
			APIBaseURL: "https://api.spotify.com/v1",
		},
		YTDLP: YTDLPConfig{
			Binary:       "yt-dlp",
			AudioFormat:  "mp3",
			AudioQuality: "192K",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:5000", "http://127.0.0.1:5000"},
		},
	}
}
