//go:build noparquet

package exporter

import (
	"context"

	"github.com/bridgepool/bridgepool/internal/parser"
)

// ParquetExporter is unavailable in noparquet builds
type ParquetExporter struct{}

func NewParquetExporter(string) (*ParquetExporter, error) {
	return nil, ErrParquetUnsupported
}

func (e *ParquetExporter) Path() string {
	return ""
}

func (e *ParquetExporter) Export(context.Context, []*parser.Assignment) error {
	return ErrParquetUnsupported
}
