package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type options struct {
	prefix   string
	envFiles []string
}

// Option tunes a single Load call.
type Option func(*options)

// WithPrefix prepends prefix to every variable name, e.g. "SWEEPER_".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvFiles loads the given .env files before parsing. Variables already
// present in the process environment win. Missing files are an error.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, files...)
	}
}

// Load parses environment variables into v based on its `env` field tags.
//
// Without WithEnvFiles, a .env file in the working directory is loaded when
// present.
//
// Example:
//
//	type SweeperConfig struct {
//		Schedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 5m"`
//		Batch    int    `env:"SWEEP_BATCH" envDefault:"100"`
//	}
//
//	var cfg SweeperConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	} else {
		// The default .env is optional.
		_ = godotenv.Load()
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
