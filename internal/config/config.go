// Package config loads bytemetrics settings from .bytemetrics/config.yml
// with BYTEMETRICS_* environment overrides.
package config

import (
	"github.com/mvp-joe/bytemetrics/internal/archive"
	"github.com/mvp-joe/bytemetrics/internal/history"
	"github.com/mvp-joe/bytemetrics/internal/metrics"
	"github.com/mvp-joe/bytemetrics/internal/resolver"
)

// Config represents the complete bytemetrics configuration.
type Config struct {
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
}

// ArchiveConfig selects which entries of a batch are analyzed.
type ArchiveConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for class entries
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// ResolverConfig locates ancestors that are not part of the batch.
type ResolverConfig struct {
	Classpath   []string `yaml:"classpath" mapstructure:"classpath"`         // dirs, jars, jmods, dir/*, JDK homes
	CacheSizeMB int      `yaml:"cache_size_mb" mapstructure:"cache_size_mb"` // resolved class byte cache
}

// AnalysisConfig tunes the metric accumulators.
type AnalysisConfig struct {
	BaseTypes               []string `yaml:"base_types" mapstructure:"base_types"`
	CountUnconditionalJumps bool     `yaml:"count_unconditional_jumps" mapstructure:"count_unconditional_jumps"`
	Workers                 int      `yaml:"workers" mapstructure:"workers"`
}

// HistoryConfig controls run persistence.
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`   // save every analyze run
	Database string `yaml:"database" mapstructure:"database"` // empty means ~/.bytemetrics/history.db
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Include: append([]string(nil), archive.DefaultInclude...),
			Ignore:  append([]string(nil), archive.DefaultIgnore...),
		},
		Resolver: ResolverConfig{
			Classpath:   []string{},
			CacheSizeMB: 64,
		},
		Analysis: AnalysisConfig{
			BaseTypes:               append([]string(nil), metrics.DefaultBaseTypes...),
			CountUnconditionalJumps: true,
			Workers:                 4,
		},
		History: HistoryConfig{
			Enabled:  false,
			Database: "",
		},
	}
}

// MetricsOptions converts the analysis section for the metrics engine.
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		BaseTypes:               c.Analysis.BaseTypes,
		CountUnconditionalJumps: c.Analysis.CountUnconditionalJumps,
		Workers:                 c.Analysis.Workers,
	}
}

// Filter compiles the archive patterns.
func (c *Config) Filter() (*archive.Filter, error) {
	return archive.NewFilter(c.Archive.Include, c.Archive.Ignore)
}

// CacheBytes is the resolver cache size in bytes.
func (c *Config) CacheBytes() int {
	return c.Resolver.CacheSizeMB << 20
}

// OpenClasspath opens the configured classpath followed by extra entries.
// The caller closes the result.
func (c *Config) OpenClasspath(extra []string) (*resolver.Classpath, error) {
	entries := append(append([]string(nil), c.Resolver.Classpath...), extra...)
	return resolver.NewClasspath(entries, c.CacheBytes())
}

// HistoryPath returns the history database path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Database != "" {
		return c.History.Database, nil
	}
	return history.DefaultPath()
}
