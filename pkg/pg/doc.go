// Package pg opens PostgreSQL connection pools with pgx/v5 and applies goose
// migrations shipped inside the binary.
//
// Connect retries with exponential backoff until the server answers a ping,
// which keeps container start order from mattering. Migrate bridges the pool
// to database/sql for goose and reads migration files from an fs.FS, usually
// an embed.FS owned by the store package that defines the schema.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//
// # Error Handling
//
// IsDuplicateKeyError and ConstraintName classify *pgconn.PgError values so
// stores can map unique violations onto domain errors.
package pg
