package db

import (
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const postgresDriverName = "pgx"

// NewPostgresDb connects to PostgreSQL with a keyword/value or URL dsn.
// Pragmas and path options are ignored.
func NewPostgresDb(dsn string, opts ...Option) (*sqlx.DB, error) {
	cfg := newConfig(opts)

	slog.Debug("db", "driver", postgresDriverName)
	db, err := sqlx.Connect(postgresDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	cfg.apply(db)

	return db, nil
}
