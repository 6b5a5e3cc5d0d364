package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	Testing = true
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pymixer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
silent: true
extensions: [".PY", "pyw"]
obfuscation:
  names:
    mode: random
    length: 8
  strings:
    enabled: false
ignore:
  names: [main, run]
  prefixes: [test_]
validate:
  enabled: true
  timeout_seconds: 5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.Silent)
	assert.Equal(t, []string{"py", "pyw"}, cfg.Extensions)
	assert.Equal(t, NamesModeRandom, cfg.Obfuscation.Names.Mode)
	assert.Equal(t, 8, cfg.Obfuscation.Names.Length)
	assert.True(t, cfg.Obfuscation.Names.Scramble, "unset keys keep their default")
	assert.False(t, cfg.Obfuscation.Strings.Enabled)
	assert.True(t, cfg.Obfuscation.Exports.Enabled)
	assert.Equal(t, []string{"main", "run"}, cfg.Ignore.Names)
	assert.Equal(t, []string{"test_"}, cfg.Ignore.Prefixes)
	assert.True(t, cfg.Validate.Enabled)
	assert.Equal(t, "python3", cfg.Validate.Python)
	assert.Equal(t, 5, cfg.Validate.TimeoutSeconds)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PYMIXER_OBFUSCATION_EXPORTS_ENABLED", "false")
	t.Setenv("PYMIXER_ABORT_ON_ERROR", "true")

	cfg, err := LoadConfig(writeConfig(t, "silent: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Obfuscation.Exports.Enabled)
	assert.True(t, cfg.AbortOnError)
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "obfuscation:\n  names:\n    mode: shuffled\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obfuscation.names.mode")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pymixer.yaml")
	require.NoError(t, SaveConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestHasExtension(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.HasExtension("pkg/mod.py"))
	assert.True(t, cfg.HasExtension("MOD.PY"))
	assert.False(t, cfg.HasExtension("mod.pyc"))
	assert.False(t, cfg.HasExtension("Makefile"))
}

func TestIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipPaths = append(cfg.SkipPaths, "vendor/*", "gen_*.py")

	tests := []struct {
		path string
		want bool
	}{
		{"a.backup.py", true},
		{"pkg/a.backup.py", true},
		{"__pycache__/a.py", true},
		{"vendor/lib/x.py", true},
		{"pkg/gen_model.py", true},
		{".pymixer/registry.gob", true},
		{"pkg/model.py", false},
		{"vendored.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := cfg.IsSkipped(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	cfg.SkipPaths = []string{"["}
	_, err := cfg.IsSkipped("x.py")
	assert.Error(t, err)
}
