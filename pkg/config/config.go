// Package config loads the Puppeteer configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"Puppeteer/pkg/logging"
)

const (
	DefaultFileName = "puppeteer.yaml"
	DefaultEnvFile  = ".env"
)

// Environment variables read by ApplyEnv.
const (
	EnvPlayback = "PUPPETEER_PLAYBACK"
	EnvOutput   = "PUPPETEER_OUTPUT"
	EnvLogLevel = "PUPPETEER_LOG_LEVEL"
	EnvDataDir  = "PUPPETEER_DATA_DIR"
)

// Config holds every user-adjustable setting.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Record   RecordConfig   `yaml:"record"`
	Log      LogConfig      `yaml:"log"`
	DataDir  string         `yaml:"data_dir"`

	// Source records where the configuration came from (defaults or a file path).
	Source string `yaml:"-"`
}

// PlaybackConfig selects playback mode. An empty Script means record mode.
type PlaybackConfig struct {
	Script string `yaml:"script"`
	Watch  bool   `yaml:"watch"`
}

// RecordConfig controls where records go while recording.
type RecordConfig struct {
	// Output is the dump file; "" or "-" means stdout. .zst, .br and .gz
	// suffixes compress the dump.
	Output             string  `yaml:"output"`
	Store              bool    `yaml:"store"`
	SessionName        string  `yaml:"session_name"`
	MaxEventsPerSecond float64 `yaml:"max_events_per_second"`
	Burst              int     `yaml:"burst"`
	// Plugins is a directory of .js record plugins.
	Plugins string `yaml:"plugins"`
}

// LogConfig controls the diagnostic log, not the record dump.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       bool   `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultDataDir is the per-user directory for the tape store and log files.
func DefaultDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	return filepath.Join(configDir, "Puppeteer")
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Record: RecordConfig{
			Output:      "-",
			Store:       true,
			SessionName: "recording",
			Burst:       10,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
		DataDir: DefaultDataDir(),
		Source:  "<defaults>",
	}
}

// Load reads path on top of the defaults. With an empty path ./puppeteer.yaml
// is tried and may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", candidate, err)
	}
	cfg.Source = candidate

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPlayback); ok {
		c.Playback.Script = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvOutput); ok && strings.TrimSpace(v) != "" {
		c.Record.Output = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDataDir); ok && strings.TrimSpace(v) != "" {
		c.DataDir = strings.TrimSpace(v)
	}
}

// EnvLookup returns a lookup for ApplyEnv that reads the process environment
// first and then the dotenv file at path. A missing file is not an error.
func EnvLookup(path string) func(string) (string, bool) {
	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.LogWarn("config").Err(err).Str("file", path).Msg("Ignoring unreadable env file")
		}
		dotenv = nil
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "trace", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return errors.New("log.max_size_mb must be positive")
	}
	if c.Record.MaxEventsPerSecond < 0 {
		return errors.New("record.max_events_per_second must not be negative")
	}
	if c.Record.Burst < 0 {
		return errors.New("record.burst must not be negative")
	}
	return nil
}

// PlaybackMode reports whether a playback script is configured.
func (c Config) PlaybackMode() bool { return c.Playback.Script != "" }

// StorePath is the tape database location.
func (c Config) StorePath() string { return filepath.Join(c.DataDir, "tapes.db") }

// LoggerConfig converts the log section for logging.InitLogger.
func (c Config) LoggerConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	if c.Log.File {
		lc = logging.PersistentLogConfig(c.DataDir)
	}
	lc.Level = logging.ParseLevel(c.Log.Level)
	lc.MaxSizeMB = c.Log.MaxSizeMB
	if c.Log.MaxAgeDays > 0 {
		lc.MaxAgeDays = c.Log.MaxAgeDays
	}
	if c.Log.MaxBackups > 0 {
		lc.MaxBackups = c.Log.MaxBackups
	}
	return lc
}

// String renders the effective configuration as YAML.
func (c Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "config: " + strconv.Quote(err.Error())
	}
	return string(out)
}
