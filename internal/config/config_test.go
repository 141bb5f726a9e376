package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - LoadConfigFromDir() uses defaults when no config file exists
// - LoadConfigFromDir() loads from .bytemetrics/config.yml and .yaml
// - partial config files are merged with defaults
// - environment variables override config file values and defaults
// - a classpath from the environment is split on the OS list separator
// - NewFileLoader() reads an explicit path and fails when it is missing
// - malformed YAML and invalid values are rejected
// - Validate() rejects bad patterns, workers, cache size, and base types
// - Validate() reports multiple problems together
// - conversion helpers feed the metrics engine, filter, and history store

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".bytemetrics")
	require.NoError(t, os.MkdirAll(cfgDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"**.class"}, cfg.Archive.Include)
	assert.Equal(t, []string{"META-INF/**"}, cfg.Archive.Ignore)
	assert.Empty(t, cfg.Resolver.Classpath)
	assert.Equal(t, 64, cfg.Resolver.CacheSizeMB)
	assert.Equal(t, []string{"java/lang/Object", "java/lang/Enum", "java/lang/Record"}, cfg.Analysis.BaseTypes)
	assert.True(t, cfg.Analysis.CountUnconditionalJumps)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.False(t, cfg.History.Enabled)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Archive, cfg.Archive)
	assert.Empty(t, cfg.Resolver.Classpath)
	assert.Equal(t, defaults.Resolver.CacheSizeMB, cfg.Resolver.CacheSizeMB)
	assert.Equal(t, defaults.Analysis, cfg.Analysis)
	assert.Equal(t, defaults.History, cfg.History)
}

func TestLoadConfig_LoadsFromConfigFile(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config.yml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, name, `
archive:
  include: ["com/acme/**"]
  ignore: ["**/generated/**"]
resolver:
  classpath: ["lib/a.jar", "lib/b.jar"]
  cache_size_mb: 16
analysis:
  base_types: ["java/lang/Object"]
  count_unconditional_jumps: false
  workers: 2
history:
  enabled: true
  database: /tmp/runs.db
`)
			cfg, err := LoadConfigFromDir(dir)
			require.NoError(t, err)

			assert.Equal(t, []string{"com/acme/**"}, cfg.Archive.Include)
			assert.Equal(t, []string{"**/generated/**"}, cfg.Archive.Ignore)
			assert.Equal(t, []string{"lib/a.jar", "lib/b.jar"}, cfg.Resolver.Classpath)
			assert.Equal(t, 16, cfg.Resolver.CacheSizeMB)
			assert.Equal(t, []string{"java/lang/Object"}, cfg.Analysis.BaseTypes)
			assert.False(t, cfg.Analysis.CountUnconditionalJumps)
			assert.Equal(t, 2, cfg.Analysis.Workers)
			assert.True(t, cfg.History.Enabled)
			historyPath, err := cfg.HistoryPath()
			require.NoError(t, err)
			assert.Equal(t, "/tmp/runs.db", historyPath)
		})
	}
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: 8\n")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.CountUnconditionalJumps)
	assert.Equal(t, 64, cfg.Resolver.CacheSizeMB)
	assert.Equal(t, []string{"**.class"}, cfg.Archive.Include)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: 8\nhistory:\n  enabled: false\n")

	t.Setenv("BYTEMETRICS_ANALYSIS_WORKERS", "3")
	t.Setenv("BYTEMETRICS_HISTORY_ENABLED", "true")
	t.Setenv("BYTEMETRICS_RESOLVER_CACHE_SIZE_MB", "128")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 128, cfg.Resolver.CacheSizeMB)
}

func TestLoadConfig_ClasspathFromEnvironment(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	sep := string(os.PathListSeparator)
	t.Setenv("BYTEMETRICS_RESOLVER_CLASSPATH", "lib/a.jar"+sep+"lib/b.jar")

	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.jar", "lib/b.jar"}, cfg.Resolver.Classpath)
}

func TestNewFileLoader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  workers: 6\n"), 0644))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Analysis.Workers)

	_, err = NewFileLoader(filepath.Join(t.TempDir(), "missing.yml")).Load()
	assert.Error(t, err)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: [unclosed\n")

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "analysis:\n  workers: 0\n")

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad include", func(c *Config) { c.Archive.Include = []string{"[oops"} }, ErrInvalidPattern},
		{"bad ignore", func(c *Config) { c.Archive.Ignore = []string{"**/[bad"} }, ErrInvalidPattern},
		{"empty include", func(c *Config) { c.Archive.Include = nil }, ErrInvalidPattern},
		{"zero workers", func(c *Config) { c.Analysis.Workers = 0 }, ErrInvalidWorkers},
		{"negative cache", func(c *Config) { c.Resolver.CacheSizeMB = -1 }, ErrInvalidCacheSize},
		{"no base types", func(c *Config) { c.Analysis.BaseTypes = []string{" "} }, ErrEmptyBaseTypes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_ReturnsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.Workers = -1
	cfg.Resolver.CacheSizeMB = 0
	cfg.Analysis.BaseTypes = nil

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "invalid worker count")
	assert.Contains(t, err.Error(), "invalid cache size")
	assert.Contains(t, err.Error(), "empty base types")
}

func TestConfig_Conversions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.Workers = 7
	cfg.Analysis.CountUnconditionalJumps = false

	opts := cfg.MetricsOptions()
	assert.Equal(t, 7, opts.Workers)
	assert.False(t, opts.CountUnconditionalJumps)
	assert.Equal(t, cfg.Analysis.BaseTypes, opts.BaseTypes)

	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.True(t, f.Match("com/x/A.class"))
	assert.False(t, f.Match("META-INF/versions/9/A.class"))

	assert.Equal(t, 64<<20, cfg.CacheBytes())
	historyPath, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(historyPath))
	cfg.History.Database = "runs.db"
	historyPath, err = cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "runs.db", historyPath)
}
