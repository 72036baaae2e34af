package dji

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, dir string, fields map[string]any) {
	t.Helper()
	content, err := json.Marshal(fields)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), content, 0o644))
}

func writeEnvFile(t *testing.T, path, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("# dev secrets\n"+EnvAPIKey+"="+value+"\n"), 0o644))
}

func TestKeyring_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	writeConfig(t, dir, map[string]any{configKeyField: "from-config"})
	writeEnvFile(t, envFile, "from-dotenv")

	t.Run("environment wins over config and dotenv", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "from-env")

		k := NewKeyring(WithAppDataDir(dir), WithEnvFile(envFile), WithLogger(discardLogger()))
		key, ok := k.APIKey()
		require.True(t, ok)
		assert.Equal(t, "from-env", key)
	})

	t.Run("config wins over dotenv", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")

		k := NewKeyring(WithAppDataDir(dir), WithEnvFile(envFile), WithLogger(discardLogger()))
		key, ok := k.APIKey()
		require.True(t, ok)
		assert.Equal(t, "from-config", key)
	})

	t.Run("dotenv as last resort", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "")

		k := NewKeyring(WithEnvFile(envFile), WithLogger(discardLogger()))
		key, ok := k.APIKey()
		require.True(t, ok)
		assert.Equal(t, "from-dotenv", key)
	})

	t.Run("explicit key wins over everything", func(t *testing.T) {
		t.Setenv(EnvAPIKey, "from-env")

		k := NewKeyring(WithAPIKey("explicit"), WithAppDataDir(dir), WithEnvFile(envFile), WithLogger(discardLogger()))
		key, ok := k.APIKey()
		require.True(t, ok)
		assert.Equal(t, "explicit", key)
	})
}

func TestKeyring_PlaceholderTreatedAsAbsent(t *testing.T) {
	t.Setenv(EnvAPIKey, placeholderKey)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeEnvFile(t, envFile, `"`+placeholderKey+`"`)

	k := NewKeyring(WithEnvFile(envFile), WithLogger(discardLogger()))
	_, ok := k.APIKey()
	assert.False(t, ok)
	assert.False(t, k.HasAPIKey())
}

func TestKeyring_DotenvQuotesStripped(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	envFile := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, envFile, `"quoted-key"`)

	k := NewKeyring(WithEnvFile(envFile), WithLogger(discardLogger()))
	key, ok := k.APIKey()
	require.True(t, ok)
	assert.Equal(t, "quoted-key", key)
}

func TestKeyring_CacheNotRefreshedBySave(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	dir := t.TempDir()
	k := NewKeyring(WithAppDataDir(dir), WithEnvFile(filepath.Join(dir, ".env")), WithLogger(discardLogger()))

	_, ok := k.APIKey()
	require.False(t, ok)

	require.NoError(t, k.SaveAPIKey("late-key"))

	// Resolution happened once; the saved key is only visible to a new
	// Keyring, mirroring the process-restart contract.
	_, ok = k.APIKey()
	assert.False(t, ok)

	fresh := NewKeyring(WithAppDataDir(dir), WithEnvFile(filepath.Join(dir, ".env")), WithLogger(discardLogger()))
	key, ok := fresh.APIKey()
	require.True(t, ok)
	assert.Equal(t, "late-key", key)
}

func TestKeyring_SavePreservesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, map[string]any{
		configKeyField: "old-key",
		"theme":        "dark",
		"window":       map[string]any{"width": 1280.0},
	})

	k := NewKeyring(WithAppDataDir(dir), WithLogger(discardLogger()))
	require.NoError(t, k.SaveAPIKey("new-key"))

	content, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)

	var config map[string]any
	require.NoError(t, json.Unmarshal(content, &config))
	assert.Equal(t, "new-key", config[configKeyField])
	assert.Equal(t, "dark", config["theme"])
	assert.Equal(t, map[string]any{"width": 1280.0}, config["window"])
}

func TestKeyring_SaveWithoutConfigDir(t *testing.T) {
	k := NewKeyring(WithLogger(discardLogger()))
	assert.ErrorIs(t, k.SaveAPIKey("key"), ErrNoConfigDir)
}
