package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/bridgepool/bridgepool/internal/parser"
	"github.com/bridgepool/bridgepool/internal/utils"
)

// CSVHeader is the fixed column order of the csv export
var CSVHeader = []string{
	"entry_sha",
	"fingerprint",
	"distribution_method",
	"transport",
	"ip",
	"blocklist",
	"distributed",
	"state",
	"bandwidth",
	"ratio",
}

// CSVExporter writes one row per line entry, overwriting the target file.
type CSVExporter struct {
	path string
}

func NewCSVExporter(path string) *CSVExporter {
	return &CSVExporter{path: path}
}

func (e *CSVExporter) Path() string {
	return e.path
}

func (e *CSVExporter) Export(ctx context.Context, data []*parser.Assignment) error {
	if err := utils.EnsureParent(e.path); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}

	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", ErrExport, e.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("%w: write header: %w", ErrExport, err)
	}

	for _, a := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, l := range a.Lines {
			if err := w.Write(csvRecord(l)); err != nil {
				return fmt.Errorf("%w: write row %s: %w", ErrExport, l.SHA, err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrExport, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %w", ErrExport, e.path, err)
	}

	slog.Info("export done", "backend", FormatCSV, "path", e.path, "rows", parser.EntryCount(data))
	return nil
}

func csvRecord(l *parser.LineEntry) []string {
	return []string{
		l.SHA,
		l.Fingerprint,
		l.DistributionMethod,
		deref(l.Transport),
		deref(l.IP),
		deref(l.Blocklist),
		formatBool(l.Distributed),
		deref(l.State),
		deref(l.Bandwidth),
		formatFloat(l.Ratio),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
