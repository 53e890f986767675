package logger

import (
	"log/slog"
	"strings"
)

// Config holds logger settings loaded from the environment.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"canvascue-accounting"`
	Level   string `env:"LOG_LEVEL"`
}

// NewFromConfig builds a logger from environment defaults, then applies the
// explicit level (if any) and the extra options.
func NewFromConfig(cfg Config, opts ...Option) *slog.Logger {
	all := []Option{WithEnvironment(cfg.Env, cfg.Service)}
	if lvl, ok := parseLevel(cfg.Level); ok {
		all = append(all, WithLevel(lvl))
	}
	return New(append(all, opts...)...)
}

func parseLevel(s string) (slog.Level, bool) {
	if s == "" {
		return 0, false
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, false
	}
	return lvl, true
}
