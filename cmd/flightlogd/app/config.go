package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr   = ":8080"
	defaultDatabaseFile = "flights.sqlite"
	defaultHTTPTimeout  = 15 * time.Second
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	DJI      DJIConfig     `yaml:"dji"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel LogLevel `yaml:"logLevel"`
}

// ServerConfig represents the HTTP server settings
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DatabasePath string `yaml:"databasePath"`
}

// DJIConfig represents the DJI keychain service settings. APIKey set here
// takes precedence over the environment and config.json.
type DJIConfig struct {
	APIKey     string       `yaml:"apiKey"`
	BaseURL    string       `yaml:"baseUrl"`
	AppDataDir string       `yaml:"appDataDir"`
	EnvFile    string       `yaml:"envFile"`
	Timeout    TimeDuration `yaml:"timeout"`
}

type LogLevel slog.Level

func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(value.Value) {
	case "", "info":
		*l = LogLevel(slog.LevelInfo)
	case "debug":
		*l = LogLevel(slog.LevelDebug)
	case "warn", "warning":
		*l = LogLevel(slog.LevelWarn)
	case "error":
		*l = LogLevel(slog.LevelError)
	default:
		return fmt.Errorf("app.LogLevel: unknown level %q", value.Value)
	}
	return nil
}

func (l LogLevel) Level() slog.Level {
	return slog.Level(l)
}

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(*d).String(), nil
}

// LoadConfig reads a YAML configuration file. An empty path yields the
// default configuration, so the server can start without a file.
func LoadConfig(path string) (*Config, error) {
	config := Config{
		Server:  ServerConfig{Listen: defaultListenAddr},
		Storage: StorageConfig{DatabasePath: defaultDatabaseFile},
		DJI:     DJIConfig{Timeout: TimeDuration(defaultHTTPTimeout)},
	}
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Server.Listen == "" {
		config.Server.Listen = defaultListenAddr
	}
	if config.Storage.DatabasePath == "" {
		config.Storage.DatabasePath = defaultDatabaseFile
	}
	if config.DJI.Timeout <= 0 {
		config.DJI.Timeout = TimeDuration(defaultHTTPTimeout)
	}

	return &config, nil
}
