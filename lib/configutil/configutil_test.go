package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Port    int               `json:"port"`
	Headers map[string]string `json:"headers"`
	Nested  struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	} `json:"nested"`
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "default",
		port: 8000,
		nested: { path: "data.db" },
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		port: 9000,
	}`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "data.db", cfg.Nested.Path)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "telemetry.local.json5"), []byte(`{name: "local"}`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "telemetry.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{name: `), 0644)
	require.NoError(t, err)

	_, err = ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	var defaults testConfig
	defaults.Name = "fallback"
	defaults.Port = 80
	defaults.Nested.Path = "default.db"

	var value testConfig
	value.Port = 443

	merged, err := WithDefaults(value, defaults)
	require.NoError(t, err)
	require.Equal(t, "fallback", merged.Name)
	require.Equal(t, 443, merged.Port)
	require.Equal(t, "default.db", merged.Nested.Path)
}

func TestSetLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{name: "base", port: 80}`), 0600))
	require.NoError(t, os.WriteFile(LocalPath(name), []byte(`{
		// kept
		headers: {a: "1"},
	}`), 0600))

	path, err := SetLocal(name, map[string]any{
		"nested.path": "/tmp/x",
		"port":        8080,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.local.json5"), path)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "/tmp/x", cfg.Nested.Path)
	require.Equal(t, map[string]string{"a": "1"}, cfg.Headers)
}
