package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Host         HostConfig         `mapstructure:"host"`
	Repositories []RepositoryConfig `mapstructure:"repositories"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	PluginsDir       string        `mapstructure:"plugins_dir"`
	TempDir          string        `mapstructure:"temp_dir"`
	DatabasePath     string        `mapstructure:"database_path"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// SyncConfig contains repository sync configuration
type SyncConfig struct {
	Interval       time.Duration `mapstructure:"interval"` // 0 disables periodic sync
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HostConfig identifies the running host for compatibility checks
type HostConfig struct {
	Version string `mapstructure:"version"`
}

// RepositoryConfig describes one remote plugin repository
type RepositoryConfig struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // directory for categorized log files
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			PluginsDir:       "$HOME/.plugin-hub/plugins",
			TempDir:          "$HOME/.plugin-hub/tmp",
			DatabasePath:     "$HOME/.plugin-hub/tasks.db",
			ConcurrentLimit:  3,
			MaxRetries:       3,
			RetryBaseDelay:   2 * time.Second,
			RetryMaxDelay:    2 * time.Minute,
			ProgressInterval: 500 * time.Millisecond,
		},
		Sync: SyncConfig{
			Interval:       30 * time.Minute,
			RequestTimeout: 30 * time.Second,
		},
		Host: HostConfig{
			Version: "1.0.0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.plugin-hub/logs",
		},
	}
}
