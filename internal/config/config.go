// Package config loads and persists application configuration and owns
// logger setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/remedia-app/remedia/internal/host"
)

// Config is the root application configuration.
type Config struct {
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Clipboard ClipboardConfig `mapstructure:"clipboard"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DownloadsConfig controls the engine and output routing.
type DownloadsConfig struct {
	OutputDir     string                `mapstructure:"output_dir"`
	MaxConcurrent int                   `mapstructure:"max_concurrent"`
	Binary        string                `mapstructure:"binary"`
	Settings      host.DownloadSettings `mapstructure:"settings"`
}

// ClipboardConfig controls the focus-triggered clipboard watcher.
type ClipboardConfig struct {
	WatchEnabled bool   `mapstructure:"watch_enabled"`
	ReadCommand  string `mapstructure:"read_command"`
}

// RemoteConfig controls the WebSocket remote-control server.
type RemoteConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// HistoryConfig controls the completed-download history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig controls log output, rotation, and formatting.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Color      bool   `mapstructure:"color"`
}

// Load reads configuration from cfgFile, or from the default search
// paths when cfgFile is empty. A missing config file is not an error;
// defaults apply.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REMEDIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// An absent config file only matters when one was named explicitly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Downloads.Settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid download settings: %w", err)
	}

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("downloads.output_dir", defaults.Downloads.OutputDir)
	v.SetDefault("downloads.max_concurrent", defaults.Downloads.MaxConcurrent)
	v.SetDefault("downloads.binary", defaults.Downloads.Binary)
	v.SetDefault("downloads.settings.download_mode", defaults.Downloads.Settings.DownloadMode)
	v.SetDefault("downloads.settings.video_quality", defaults.Downloads.Settings.VideoQuality)
	v.SetDefault("downloads.settings.max_resolution", defaults.Downloads.Settings.MaxResolution)
	v.SetDefault("downloads.settings.video_format", defaults.Downloads.Settings.VideoFormat)
	v.SetDefault("downloads.settings.audio_format", defaults.Downloads.Settings.AudioFormat)
	v.SetDefault("downloads.settings.audio_quality", defaults.Downloads.Settings.AudioQuality)
	v.SetDefault("downloads.settings.download_rate_limit", defaults.Downloads.Settings.DownloadRateLimit)
	v.SetDefault("downloads.settings.max_file_size", defaults.Downloads.Settings.MaxFileSize)
	v.SetDefault("downloads.settings.append_unique_id", defaults.Downloads.Settings.AppendUniqueID)
	v.SetDefault("downloads.settings.unique_id_type", defaults.Downloads.Settings.UniqueIDType)
	v.SetDefault("clipboard.watch_enabled", defaults.Clipboard.WatchEnabled)
	v.SetDefault("clipboard.read_command", defaults.Clipboard.ReadCommand)
	v.SetDefault("remote.enabled", defaults.Remote.Enabled)
	v.SetDefault("remote.addr", defaults.Remote.Addr)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	v.SetDefault("logging.compress", defaults.Logging.Compress)
	v.SetDefault("logging.color", defaults.Logging.Color)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Downloads: DownloadsConfig{
			MaxConcurrent: 2,
			Binary:        "yt-dlp",
			Settings:      host.DefaultSettings(),
		},
		Clipboard: ClipboardConfig{
			WatchEnabled: true,
		},
		Remote: RemoteConfig{
			Enabled: false,
			Addr:    "127.0.0.1:17814",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(StateDir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
			Color:      true,
		},
	}
}

// WriteDefault writes the default configuration as YAML to path,
// refusing to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	out, err := yaml.Marshal(defaultYAMLTree())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

func defaultYAMLTree() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"downloads": map[string]any{
			"output_dir":     d.Downloads.OutputDir,
			"max_concurrent": d.Downloads.MaxConcurrent,
			"binary":         d.Downloads.Binary,
			"settings": map[string]any{
				"download_mode":       d.Downloads.Settings.DownloadMode,
				"video_quality":       d.Downloads.Settings.VideoQuality,
				"max_resolution":      d.Downloads.Settings.MaxResolution,
				"video_format":        d.Downloads.Settings.VideoFormat,
				"audio_format":        d.Downloads.Settings.AudioFormat,
				"audio_quality":       d.Downloads.Settings.AudioQuality,
				"download_rate_limit": d.Downloads.Settings.DownloadRateLimit,
				"max_file_size":       d.Downloads.Settings.MaxFileSize,
				"append_unique_id":    d.Downloads.Settings.AppendUniqueID,
				"unique_id_type":      d.Downloads.Settings.UniqueIDType,
			},
		},
		"clipboard": map[string]any{
			"watch_enabled": d.Clipboard.WatchEnabled,
			"read_command":  d.Clipboard.ReadCommand,
		},
		"remote": map[string]any{
			"enabled": d.Remote.Enabled,
			"addr":    d.Remote.Addr,
		},
		"history": map[string]any{
			"enabled": d.History.Enabled,
			"path":    d.History.Path,
		},
		"logging": map[string]any{
			"level":       d.Logging.Level,
			"format":      d.Logging.Format,
			"file":        d.Logging.File,
			"max_size":    d.Logging.MaxSize,
			"max_backups": d.Logging.MaxBackups,
			"max_age":     d.Logging.MaxAge,
			"compress":    d.Logging.Compress,
			"color":       d.Logging.Color,
		},
	}
}

// ConfigDir is where the config file lives.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "remedia")
	}
	return "."
}

// StateDir is where logs and the history database live.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "remedia")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "remedia")
	}
	return "."
}

// InitializeDirs creates the config and state directories.
func InitializeDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// DirStore persists the download output directory back through viper, so
// a directory resolved at runtime survives restarts.
type DirStore struct {
	mu  sync.Mutex
	v   *viper.Viper
	dir string
}

// NewDirStore seeds a store from the loaded configuration.
func NewDirStore(v *viper.Viper, initial string) *DirStore {
	return &DirStore{v: v, dir: initial}
}

// OutputDir returns the configured output directory, possibly empty.
func (s *DirStore) OutputDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// SetOutputDir updates the directory and persists it best-effort; a
// failed write keeps the in-memory value authoritative.
func (s *DirStore) SetOutputDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = dir
	if s.v != nil {
		s.v.Set("downloads.output_dir", dir)
		_ = s.v.WriteConfig()
	}
}
