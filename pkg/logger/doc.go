// Package logger builds the slog loggers used across the accounting services
// and defines the attribute helpers that keep field names consistent.
//
// Loggers are created once per binary and injected into components through
// their WithLogger options; nothing in this module logs through a global.
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg, logger.WithAttr(logger.Component("sweeper")))
//
// APP_ENV selects the stage defaults: text at debug level in development,
// JSON at info level in staging and production. LOG_LEVEL overrides the level.
//
// # Attributes
//
// Use the helpers instead of ad-hoc keys:
//
//	log.InfoContext(ctx, "subscription account updated",
//		logger.AccountID(acct.ID),
//		logger.Transition(string(from), string(acct.Status)),
//	)
//
// Helpers that receive an empty value (nil error, empty provider ID) return
// an empty slog.Attr, which slog drops.
//
// # Context
//
// ContextWithAccountID stores the account being processed; loggers made by New
// add it as account_id to every record logged with that context. Extra
// extractors can be registered with WithContextExtractors.
package logger
