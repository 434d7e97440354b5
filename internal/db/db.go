package db

import (
	"fmt"
	"log/slog"

	"github.com/bridgepool/bridgepool/internal/utils"
	"github.com/jmoiron/sqlx"
)

// SQLite pragmas applied to every new database
const defaultPragma = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA foreign_keys=ON;
PRAGMA temp_store=MEMORY;
`

// config holds internal configuration for DB creation
type config struct {
	path         string
	pragmas      string
	maxOpenConns int
	maxIdleConns int
}

// Option configures a database handle
type Option func(*config)

// WithPath sets the path for the SQLite database
// Use ":memory:" for an in-memory database
func WithPath(path string) Option {
	return func(c *config) {
		c.path = path
	}
}

// WithPragmas replaces the default SQLite pragmas
func WithPragmas(pragmas string) Option {
	return func(c *config) {
		c.pragmas = pragmas
	}
}

// WithMaxOpenConns sets the maximum number of open connections
func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		c.maxOpenConns = n
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		path:         ":memory:",
		pragmas:      defaultPragma,
		maxOpenConns: 1,
		maxIdleConns: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) apply(db *sqlx.DB) {
	if c.maxOpenConns > 0 {
		db.SetMaxOpenConns(c.maxOpenConns)
	}
	if c.maxIdleConns > 0 {
		db.SetMaxIdleConns(c.maxIdleConns)
	}
}

// NewSqliteDb opens a SQLite database. A single connection is used unless
// WithMaxOpenConns says otherwise, which also keeps ":memory:" databases coherent.
func NewSqliteDb(opts ...Option) (*sqlx.DB, error) {
	cfg := newConfig(opts)

	// Ensure parent directory exists for file-based DBs
	var dsn string
	if cfg.path != ":memory:" {
		if err := utils.EnsureParent(cfg.path); err != nil {
			return nil, fmt.Errorf("ensure parent directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", cfg.path)
	} else {
		dsn = ":memory:"
	}

	slog.Debug("db", "driver", sqliteDriverID, "path", cfg.path)
	db, err := sqlx.Connect(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	cfg.apply(db)

	if _, err := db.Exec(cfg.pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return db, nil
}
