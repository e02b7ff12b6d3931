// Package config holds the sc2fix settings and their defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/discovery"
	pperrors "github.com/CairBin/sc2replay-autofix/pkg/errors"
	"github.com/CairBin/sc2replay-autofix/pkg/logger"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. SC2FIX_WATCH_MODE
	EnvPrefix = "SC2FIX"

	// DirName is the per-user state directory below $HOME
	DirName = ".sc2fix"
)

// Config is the full sc2fix configuration
type Config struct {
	SC2     SC2Config     `mapstructure:"sc2" yaml:"sc2"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SC2Config locates the game's documents folder
type SC2Config struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// WatchConfig controls the directory watchers
type WatchConfig struct {
	Dirs          []string      `mapstructure:"dirs" yaml:"dirs"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Mode          string        `mapstructure:"mode" yaml:"mode"`
	MaxConcurrent int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	SweepSchedule string        `mapstructure:"sweep_schedule" yaml:"sweep_schedule"`
	Ignore        []string      `mapstructure:"ignore" yaml:"ignore"`
	IgnoreFile    string        `mapstructure:"ignore_file" yaml:"ignore_file"`
}

// HistoryConfig controls the fix history store
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
}

// HomeDir returns $HOME/.sc2fix
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pperrors.NewConfigError("failed to get home directory", err)
	}
	return filepath.Join(home, DirName), nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	stateDir := filepath.Join("~", DirName)
	if dir, err := HomeDir(); err == nil {
		stateDir = dir
	}
	baseDir, _ := discovery.DefaultBaseDir()

	return &Config{
		SC2: SC2Config{BaseDir: baseDir},
		Watch: WatchConfig{
			Dirs:         []string{},
			Ignore:       []string{},
			IgnoreFile:   filepath.Join(stateDir, "ignore"),
			PollInterval: time.Second,
			Debounce:     500 * time.Millisecond,
			Mode:         "poll",
			StopTimeout:  100 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(stateDir, "history.db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       filepath.Join(stateDir, "logs", "sc2fix.log"),
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
		},
	}
}

// SetDefaults registers every key of Default on v and enables environment
// overrides.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("sc2.base_dir", d.SC2.BaseDir)

	v.SetDefault("watch.dirs", d.Watch.Dirs)
	v.SetDefault("watch.poll_interval", d.Watch.PollInterval)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.mode", d.Watch.Mode)
	v.SetDefault("watch.max_concurrent", d.Watch.MaxConcurrent)
	v.SetDefault("watch.stop_timeout", d.Watch.StopTimeout)
	v.SetDefault("watch.sweep_schedule", d.Watch.SweepSchedule)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.ignore_file", d.Watch.IgnoreFile)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("logging.json", d.Logging.JSON)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pperrors.NewConfigError("failed to decode configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.Watch.Mode {
	case "poll", "notify":
	default:
		return pperrors.NewConfigError(fmt.Sprintf("watch.mode must be poll or notify, got %q", c.Watch.Mode), nil)
	}
	if c.Watch.PollInterval <= 0 {
		return pperrors.NewConfigError("watch.poll_interval must be positive", nil)
	}
	if c.Watch.Debounce < 0 {
		return pperrors.NewConfigError("watch.debounce must not be negative", nil)
	}
	if c.Watch.MaxConcurrent < 0 {
		return pperrors.NewConfigError("watch.max_concurrent must not be negative", nil)
	}
	return nil
}

// LogConfig maps the logging section onto logger options. verbose raises the
// level to debug and mirrors output to the console.
func (c *Config) LogConfig(verbose bool) *logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.OutputPath = c.Logging.File
	lc.MaxSize = c.Logging.MaxSize
	lc.MaxBackups = c.Logging.MaxBackups
	lc.MaxAge = c.Logging.MaxAge
	lc.Compress = c.Logging.Compress
	lc.EnableJSON = c.Logging.JSON
	if verbose {
		lc.Level = "debug"
		lc.Development = true
	}
	return lc
}
