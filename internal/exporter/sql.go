package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bridgepool/bridgepool/internal/db"
	"github.com/bridgepool/bridgepool/internal/parser"
	"github.com/jmoiron/sqlx"
)

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS bridge_file (
		sha TEXT PRIMARY KEY,
		header TEXT NOT NULL,
		published TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bridge_entry (
		sha TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		method TEXT NOT NULL,
		file_sha TEXT REFERENCES bridge_file(sha),
		transport TEXT,
		ip TEXT,
		block TEXT,
		distributed BOOLEAN,
		state TEXT,
		bandwidth TEXT,
		ratio DOUBLE PRECISION,
		published TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bridge_entry_fingerprint ON bridge_entry(fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_bridge_entry_file_sha ON bridge_entry(file_sha)`,
}

const insertFileSQL = `INSERT INTO bridge_file (sha, header, published)
	VALUES (?, ?, ?) ON CONFLICT DO NOTHING`

const insertEntrySQL = `INSERT INTO bridge_entry (
		sha, fingerprint, method, file_sha,
		transport, ip, block, distributed,
		state, bandwidth, ratio, published
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`

// SQLExporter writes assignments into bridge_file / bridge_entry in a single
// transaction. Rows are keyed by digest so re-running over the same reports is a no-op.
// Concurrent exporters against one database are not coordinated here.
type SQLExporter struct {
	name     string
	open     func() (*sqlx.DB, error)
	clearSQL []string
	clear    bool
}

func NewPostgresExporter(dsn string, clear bool) *SQLExporter {
	return &SQLExporter{
		name: string(FormatPostgres),
		open: func() (*sqlx.DB, error) {
			return db.NewPostgresDb(dsn, db.WithMaxOpenConns(1))
		},
		clearSQL: []string{`TRUNCATE TABLE bridge_entry, bridge_file`},
		clear:    clear,
	}
}

func NewSqliteExporter(path string, clear bool) *SQLExporter {
	return &SQLExporter{
		name: string(FormatSqlite),
		open: func() (*sqlx.DB, error) {
			return db.NewSqliteDb(db.WithPath(path), db.WithMaxOpenConns(1))
		},
		clearSQL: []string{`DELETE FROM bridge_entry`, `DELETE FROM bridge_file`},
		clear:    clear,
	}
}

func (e *SQLExporter) Export(ctx context.Context, data []*parser.Assignment) error {
	if len(data) == 0 {
		slog.Info("export skipped, nothing to write", "backend", e.name)
		return nil
	}

	database, err := e.open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	defer database.Close()

	tx, err := database.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrDatabase, err)
	}

	files, entries, err := e.write(ctx, tx, data)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback", "backend", e.name, "error", rbErr)
		}
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrDatabase, err)
	}

	slog.Info("export done", "backend", e.name,
		"files", len(data), "entries", parser.EntryCount(data),
		"new_files", files, "new_entries", entries)
	return nil
}

// write returns how many file and entry rows were actually inserted.
func (e *SQLExporter) write(ctx context.Context, tx *sqlx.Tx, data []*parser.Assignment) (int64, int64, error) {
	for _, stmt := range schemaSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, 0, fmt.Errorf("prepare schema: %w", err)
		}
	}

	if e.clear {
		for _, stmt := range e.clearSQL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, 0, fmt.Errorf("clear tables: %w", err)
			}
		}
		slog.Info("tables cleared", "backend", e.name)
	}

	fileStmt, err := tx.PreparexContext(ctx, tx.Rebind(insertFileSQL))
	if err != nil {
		return 0, 0, fmt.Errorf("prepare bridge_file insert: %w", err)
	}
	defer fileStmt.Close()

	entryStmt, err := tx.PreparexContext(ctx, tx.Rebind(insertEntrySQL))
	if err != nil {
		return 0, 0, fmt.Errorf("prepare bridge_entry insert: %w", err)
	}
	defer entryStmt.Close()

	var newFiles, newEntries int64
	for _, a := range data {
		published := msToUTC(a.Published)

		res, err := fileStmt.ExecContext(ctx, a.FileSHA, a.Header, published)
		if err != nil {
			return 0, 0, fmt.Errorf("insert bridge_file %s: %w", a.FileSHA, err)
		}
		newFiles += rowsAffected(res)

		for _, l := range a.Lines {
			res, err := entryStmt.ExecContext(ctx,
				l.SHA, l.Fingerprint, l.DistributionMethod, a.FileSHA,
				nullable(l.Transport), nullable(l.IP), nullable(l.Blocklist), nullable(l.Distributed),
				nullable(l.State), nullable(l.Bandwidth), nullable(l.Ratio), published,
			)
			if err != nil {
				return 0, 0, fmt.Errorf("insert bridge_entry %s: %w", l.SHA, err)
			}
			newEntries += rowsAffected(res)
		}
	}

	return newFiles, newEntries, nil
}

func msToUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// nullable turns an optional field into a plain driver value or nil.
func nullable[T string | bool | float64](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
