// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for tag-driven parsing. Every service binary
// builds one struct per concern (logger, database, billing provider) and
// loads it once at startup.
//
//	var cfg billing.PaddleConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Errors wrap ErrParsingConfig or ErrLoadingEnvFile, so callers can use
// errors.Is to tell them apart.
package config
