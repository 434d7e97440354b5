package exporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/bridgepool/bridgepool/internal/parser"
)

// Format selects one of the export backends
type Format string

const (
	FormatPostgres Format = "postgres"
	FormatSqlite   Format = "sqlite"
	FormatCSV      Format = "csv"
	FormatParquet  Format = "parquet"
)

// Formats lists every backend name accepted by New
var Formats = []Format{FormatPostgres, FormatSqlite, FormatCSV, FormatParquet}

// IsFile reports whether the format writes a local output file
func (f Format) IsFile() bool {
	return f == FormatCSV || f == FormatParquet
}

// Exporter persists parsed assignments. Export must accept an empty slice.
type Exporter interface {
	Export(ctx context.Context, data []*parser.Assignment) error
}

// Config selects and configures a backend
type Config struct {
	Format     Format
	DSN        string // postgres connection string or sqlite path
	Clear      bool   // empty the relational tables before writing
	OutputPath string // csv / parquet target file
}

// ParseFormat normalizes a user supplied format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (use postgres|sqlite|csv|parquet)", ErrUnsupportedFormat, s)
}

// New builds the exporter for cfg.Format
func New(cfg *Config) (Exporter, error) {
	switch cfg.Format {
	case FormatPostgres:
		if cfg.DSN == "" {
			return nil, ErrNoDSN
		}
		return NewPostgresExporter(cfg.DSN, cfg.Clear), nil
	case FormatSqlite:
		if cfg.DSN == "" {
			return nil, ErrNoDSN
		}
		return NewSqliteExporter(cfg.DSN, cfg.Clear), nil
	case FormatCSV:
		if cfg.OutputPath == "" {
			return nil, ErrNoOutputPath
		}
		return NewCSVExporter(cfg.OutputPath), nil
	case FormatParquet:
		if cfg.OutputPath == "" {
			return nil, ErrNoOutputPath
		}
		p, err := NewParquetExporter(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, cfg.Format)
	}
}
