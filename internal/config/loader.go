package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader for an explicit config file path.
func NewFileLoader(path string) Loader {
	return &loader{
		configFile: path,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (BYTEMETRICS_*)
// 2. Config file (.bytemetrics/config.yml or .bytemetrics/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".bytemetrics"))
	}

	v.SetEnvPrefix("BYTEMETRICS")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., BYTEMETRICS_ANALYSIS_WORKERS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("archive.include")
	v.BindEnv("archive.ignore")
	v.BindEnv("resolver.classpath")
	v.BindEnv("resolver.cache_size_mb")
	v.BindEnv("analysis.base_types")
	v.BindEnv("analysis.count_unconditional_jumps")
	v.BindEnv("analysis.workers")
	v.BindEnv("history.enabled")
	v.BindEnv("history.database")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A classpath from the environment arrives as one OS list string.
	if len(cfg.Resolver.Classpath) == 1 {
		cfg.Resolver.Classpath = filepath.SplitList(cfg.Resolver.Classpath[0])
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("archive.include", defaults.Archive.Include)
	v.SetDefault("archive.ignore", defaults.Archive.Ignore)

	v.SetDefault("resolver.classpath", defaults.Resolver.Classpath)
	v.SetDefault("resolver.cache_size_mb", defaults.Resolver.CacheSizeMB)

	v.SetDefault("analysis.base_types", defaults.Analysis.BaseTypes)
	v.SetDefault("analysis.count_unconditional_jumps", defaults.Analysis.CountUnconditionalJumps)
	v.SetDefault("analysis.workers", defaults.Analysis.Workers)

	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.database", defaults.History.Database)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
