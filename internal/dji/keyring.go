// Package dji handles the vendor side of encrypted flight logs: resolving
// the account API key from layered local sources and fetching per-file
// decryption key material from the vendor key service.
package dji

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// EnvAPIKey is the environment variable consulted first.
	EnvAPIKey = "DJI_API_KEY"

	// configFileName is the persisted configuration inside the app data
	// directory.
	configFileName = "config.json"

	// configKeyField is the API key field within the configuration object.
	configKeyField = "dji_api_key"

	// placeholderKey is the template value shipped in example dotenv files
	// and treated as absent.
	placeholderKey = "your_api_key_here"
)

var (
	// ErrAPIKeyNotConfigured reports that no usable API key could be
	// resolved from any source. Recoverable by user action.
	ErrAPIKeyNotConfigured = errors.New("DJI API key not configured: set " + EnvAPIKey + " or add it to config.json")

	// ErrNoConfigDir reports that SaveAPIKey has nowhere to persist to.
	ErrNoConfigDir = errors.New("no application data directory configured")
)

// Keyring resolves the account API key. Resolution happens once per Keyring
// and is cached for its lifetime: a key saved afterwards is only observed by
// a newly constructed Keyring (typically after process restart).
type Keyring struct {
	explicit   string
	appDataDir string
	envFile    string
	logger     *slog.Logger

	once   sync.Once
	cached string
	ok     bool
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

// WithAPIKey supplies an explicit key that wins over every other source.
func WithAPIKey(key string) KeyringOption {
	return func(k *Keyring) { k.explicit = key }
}

// WithAppDataDir points the Keyring at the directory holding config.json.
// Without it, config lookup is skipped and SaveAPIKey fails.
func WithAppDataDir(dir string) KeyringOption {
	return func(k *Keyring) { k.appDataDir = dir }
}

// WithEnvFile overrides the development dotenv file path (default ".env").
func WithEnvFile(path string) KeyringOption {
	return func(k *Keyring) { k.envFile = path }
}

// WithLogger attaches a logger for source-selection messages.
func WithLogger(logger *slog.Logger) KeyringOption {
	return func(k *Keyring) { k.logger = logger }
}

func NewKeyring(opts ...KeyringOption) *Keyring {
	k := &Keyring{envFile: ".env", logger: slog.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// APIKey resolves the API key, first match wins: explicit runtime value,
// DJI_API_KEY environment variable, config.json in the app data directory,
// dotenv file. Empty and placeholder values are treated as absent. The
// result is computed once and cached.
func (k *Keyring) APIKey() (string, bool) {
	k.once.Do(func() {
		k.cached, k.ok = k.resolve()
	})
	return k.cached, k.ok
}

// HasAPIKey reports whether any source yields a usable key.
func (k *Keyring) HasAPIKey() bool {
	_, ok := k.APIKey()
	return ok
}

func (k *Keyring) resolve() (string, bool) {
	if usable(k.explicit) {
		k.logger.Info("using DJI API key provided at startup")
		return k.explicit, true
	}

	if key := os.Getenv(EnvAPIKey); usable(key) {
		k.logger.Info("using DJI API key from environment")
		return key, true
	}

	if key, ok := k.configKey(); ok {
		k.logger.Info("using DJI API key from config.json")
		return key, true
	}

	if key, ok := k.envFileKey(); ok {
		k.logger.Info("using DJI API key from dotenv file", slog.String("path", k.envFile))
		return key, true
	}

	k.logger.Warn("no DJI API key configured")
	return "", false
}

func (k *Keyring) configKey() (string, bool) {
	if k.appDataDir == "" {
		return "", false
	}

	content, err := os.ReadFile(filepath.Join(k.appDataDir, configFileName))
	if err != nil {
		return "", false
	}

	var config struct {
		APIKey string `json:"dji_api_key"`
	}
	if err := json.Unmarshal(content, &config); err != nil {
		return "", false
	}
	return config.APIKey, usable(config.APIKey)
}

func (k *Keyring) envFileKey() (string, bool) {
	content, err := os.ReadFile(k.envFile)
	if err != nil {
		return "", false
	}

	for _, line := range strings.Split(string(content), "\n") {
		value, found := strings.CutPrefix(strings.TrimSpace(line), EnvAPIKey+"=")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if usable(value) {
			return value, true
		}
	}
	return "", false
}

// SaveAPIKey merges the key into config.json, preserving fields it does not
// own, and writes the file atomically. The in-process cache is deliberately
// not refreshed; callers are told the key takes effect on restart.
func (k *Keyring) SaveAPIKey(key string) (err error) {
	if k.appDataDir == "" {
		return ErrNoConfigDir
	}

	if err = os.MkdirAll(k.appDataDir, 0o755); err != nil {
		return fmt.Errorf("creating app data directory: %w", err)
	}

	configPath := filepath.Join(k.appDataDir, configFileName)

	// Keep unknown fields intact by merging into the raw object.
	config := make(map[string]json.RawMessage)
	if content, readErr := os.ReadFile(configPath); readErr == nil {
		if err = json.Unmarshal(content, &config); err != nil {
			return fmt.Errorf("parsing existing config: %w", err)
		}
	}

	if config[configKeyField], err = json.Marshal(key); err != nil {
		return fmt.Errorf("marshaling key: %w", err)
	}

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp(k.appDataDir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	if err = os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}

	k.logger.Info("saved DJI API key", slog.String("path", configPath))
	return nil
}

func usable(key string) bool {
	return key != "" && key != placeholderKey
}
