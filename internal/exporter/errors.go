package exporter

import "errors"

var (
	ErrUnsupportedFormat  = errors.New("exporter: unsupported format")
	ErrParquetUnsupported = errors.New("exporter: parquet support not compiled in (built with noparquet)")
	ErrNoOutputPath       = errors.New("exporter: output path missing")
	ErrNoDSN              = errors.New("exporter: database dsn missing")
	ErrDatabase           = errors.New("exporter: database failure")
	ErrExport             = errors.New("exporter: export failure")
)
