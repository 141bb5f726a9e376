package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidPattern indicates an archive glob that does not compile
	ErrInvalidPattern = errors.New("invalid archive pattern")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a non-positive resolver cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrEmptyBaseTypes indicates that no depth-0 base types are configured
	ErrEmptyBaseTypes = errors.New("empty base types")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateArchive(&cfg.Archive); err != nil {
		errs = append(errs, err)
	}

	if cfg.Resolver.CacheSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size_mb must be positive, got %d", ErrInvalidCacheSize, cfg.Resolver.CacheSizeMB))
	}

	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateArchive(cfg *ArchiveConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: include must not be empty", ErrInvalidPattern))
	}
	for _, list := range [][]string{cfg.Include, cfg.Ignore} {
		for _, pattern := range list {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
			}
		}
	}

	return joinErrors(errs)
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	nonEmpty := 0
	for _, b := range cfg.BaseTypes {
		if strings.TrimSpace(b) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one base type is required", ErrEmptyBaseTypes))
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into one. A single error is returned
// as is so errors.Is keeps working.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
