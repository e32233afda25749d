package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoConfigFile(t *testing.T) {
	// Point WEAVERUN_CONFIG at a path that doesn't exist, and make sure
	// nothing in the process's actual home/cwd leaks in. Load should fall
	// back to just the built-in provider set.
	t.Setenv("WEAVERUN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HOME", t.TempDir())
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.CaptureAll)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.ConfigPath)
	assert.Equal(t, len(BuiltinProviders), len(cfg.Providers))
}

func TestLoad_CustomProvidersAndCaptureAll(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "weaverun.config.yaml")

	yamlContent := `
capture_all_requests: true
debug: true
providers:
  - name: my-internal-api
    path_patterns:
      - "/internal/v1/generate"
    host_patterns:
      - "internal\\.example\\.com"
    is_regex: true
disable_providers:
  - ollama
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	t.Setenv("WEAVERUN_CONFIG", configPath)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.CaptureAll)
	assert.True(t, cfg.Debug)
	assert.Equal(t, configPath, cfg.ConfigPath)

	require.NotEmpty(t, cfg.Providers)
	assert.Equal(t, "my-internal-api", cfg.Providers[0].Name)

	for _, p := range cfg.Providers {
		assert.NotEqual(t, "ollama", p.Name)
	}
}

func TestLoad_DebugEnvOverride(t *testing.T) {
	t.Setenv("WEAVERUN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("WEAVERUN_DEBUG", "true")
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
}

// chdirTemp switches the working directory to a fresh temp dir for the
// duration of the test, so a stray ./weaverun.config.yaml in the real
// working directory can't leak into a test that expects no config file.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
