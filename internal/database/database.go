package database

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"postify/internal/config"
)

// Connect opens the pool described by cfg and optionally migrates the schema.
func Connect(cfg *config.Config, log *slog.Logger) (*sqlx.DB, error) {
	db, err := ConnectDSN(cfg.DSN())
	if err != nil {
		return nil, err
	}

	if cfg.DBMigrate {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database migrations applied")
	}

	log.Info("connected to database", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))
	return db, nil
}

// ConnectDSN opens a pool for an explicit connection string.
func ConnectDSN(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
