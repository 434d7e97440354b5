//go:build !noparquet

package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bridgepool/bridgepool/internal/parser"
	"github.com/bridgepool/bridgepool/internal/utils"
	"github.com/parquet-go/parquet-go"
)

// ParquetExporter writes every entry of every file into one denormalized parquet file.
type ParquetExporter struct {
	path string
}

func NewParquetExporter(path string) (*ParquetExporter, error) {
	return &ParquetExporter{path: path}, nil
}

func (e *ParquetExporter) Path() string {
	return e.path
}

func (e *ParquetExporter) Export(ctx context.Context, data []*parser.Assignment) error {
	rows := make([]ParquetRow, 0, parser.EntryCount(data))
	for _, a := range data {
		for _, l := range a.Lines {
			rows = append(rows, newParquetRow(a, l))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := utils.EnsureParent(e.path); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}

	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", ErrExport, e.path, err)
	}
	defer file.Close()

	w := parquet.NewGenericWriter[ParquetRow](file)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return fmt.Errorf("%w: write rows: %w", ErrExport, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close writer: %w", ErrExport, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %w", ErrExport, e.path, err)
	}

	slog.Info("export done", "backend", FormatParquet, "path", e.path, "rows", len(rows))
	return nil
}
