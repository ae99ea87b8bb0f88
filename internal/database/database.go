package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"litrevu/internal/config"
	"litrevu/internal/logger"
)

//go:embed schema.sql
var schema string

// Connect opens and pings the PostgreSQL pool described by cfg.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	db, err := Open(cfg.DSN())
	if err != nil {
		return nil, err
	}

	logger.Info("connected to database",
		zap.String("host", cfg.DBHost),
		zap.String("name", cfg.DBName),
	)
	return db, nil
}

// Open connects with an explicit DSN. Tests use it with TEST_DATABASE_URL.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent, so it
// is safe to run on each boot.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("database schema applied")
	return nil
}
