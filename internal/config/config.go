package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bridgepool/bridgepool/internal/blob"
	"github.com/bridgepool/bridgepool/internal/collector"
	"github.com/bridgepool/bridgepool/internal/exporter"
	"github.com/bridgepool/bridgepool/internal/utils"
)

const (
	DefaultBaseURL       = "https://collector.torproject.org"
	DefaultTarget        = "recent/bridge-pool-assignments"
	DefaultIndexPath     = collector.DefaultIndexPath
	DefaultDSN           = "host=localhost user=postgres password=secret dbname=tor_metrics"
	DefaultSqlitePath    = "bridgepool.db"
	DefaultFormat        = exporter.FormatPostgres
	DefaultCSVOutput     = "output.csv"
	DefaultParquetOutput = "output.parquet"
	DefaultLatest        = collector.DefaultLatest
	DefaultTimeout       = collector.DefaultTimeout
)

var (
	home, _          = os.UserHomeDir()
	DefaultConfigDir = filepath.Join(home, ".bridgepool")
	DefaultLockFile  = filepath.Join(os.TempDir(), "bridgepool.lock")
)

var (
	ErrNoBaseURL      = errors.New("config: base url missing")
	ErrInvalidBaseURL = errors.New("config: base url must be http or https")
	ErrNoTarget       = errors.New("config: target path missing")
	ErrLocalDir       = errors.New("config: local dir is not a directory")
	ErrNegative       = errors.New("config: value must not be negative")
)

// Config is the fully resolved configuration of one run.
type Config struct {
	BaseURL       string
	IndexPath     string // index document relative to BaseURL
	Target        string
	DSN           string
	Clear         bool
	LocalDir      string
	LocalPattern  string
	Format        exporter.Format
	DryRun        bool
	MaxFiles      int // truncate the collected set, 0 keeps everything
	Latest        int // files taken from the index, 0 takes all
	CSVOutput     string
	ParquetOutput string
	SkipInvalid   bool
	Workers       int // 0 uses GOMAXPROCS
	Timeout       time.Duration
	LockFile      string // empty disables the run lock
	LogFile       string

	UploadBucket    string
	UploadPrefix    string
	UploadRegion    string
	UploadEndpoint  string
	UploadAccessKey string
	UploadSecretKey string
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		IndexPath:     DefaultIndexPath,
		Target:        DefaultTarget,
		DSN:           DefaultDSN,
		LocalPattern:  collector.DefaultLocalPattern,
		Format:        DefaultFormat,
		Latest:        DefaultLatest,
		CSVOutput:     DefaultCSVOutput,
		ParquetOutput: DefaultParquetOutput,
		Timeout:       DefaultTimeout,
		LockFile:      DefaultLockFile,
	}
}

func (c *Config) Validate() error {
	format, err := exporter.ParseFormat(string(c.Format))
	if err != nil {
		return err
	}
	c.Format = format

	if c.LocalDir != "" {
		if !utils.DirExists(c.LocalDir) {
			return fmt.Errorf("%w: %q", ErrLocalDir, c.LocalDir)
		}
	} else {
		if c.BaseURL == "" {
			return ErrNoBaseURL
		}
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
		}
		if c.Target == "" {
			return ErrNoTarget
		}
	}

	if c.MaxFiles < 0 || c.Latest < 0 || c.Workers < 0 || c.Timeout < 0 {
		return ErrNegative
	}

	// backend specific requirements are checked by the factory
	_, err = exporter.New(c.ExporterConfig())
	return err
}

// ExporterConfig maps the run configuration onto the selected backend. The sqlite
// backend falls back to DefaultSqlitePath when the dsn is still the postgres default.
func (c *Config) ExporterConfig() *exporter.Config {
	cfg := &exporter.Config{
		Format: c.Format,
		DSN:    c.DSN,
		Clear:  c.Clear,
	}
	switch c.Format {
	case exporter.FormatSqlite:
		if c.DSN == DefaultDSN {
			cfg.DSN = DefaultSqlitePath
		}
	case exporter.FormatCSV:
		cfg.OutputPath = c.CSVOutput
	case exporter.FormatParquet:
		cfg.OutputPath = c.ParquetOutput
	}
	return cfg
}

// UploadConfig returns nil when no bucket is configured
func (c *Config) UploadConfig() *blob.Config {
	if c.UploadBucket == "" {
		return nil
	}
	return &blob.Config{
		BucketName: c.UploadBucket,
		Prefix:     c.UploadPrefix,
		Region:     c.UploadRegion,
		Endpoint:   c.UploadEndpoint,
		AccessKey:  c.UploadAccessKey,
		SecretKey:  c.UploadSecretKey,
	}
}
