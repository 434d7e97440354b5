package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/bridgepool/bridgepool/internal/blob"
	"github.com/bridgepool/bridgepool/internal/collector"
	"github.com/bridgepool/bridgepool/internal/config"
	"github.com/bridgepool/bridgepool/internal/exporter"
	"github.com/bridgepool/bridgepool/internal/parser"
	"github.com/bridgepool/bridgepool/internal/utils"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

var ErrRunLocked = errors.New("runner: another run holds the lock")

// Summary describes what a run did
type Summary struct {
	RunID    string
	Files    int
	Entries  int
	Format   exporter.Format
	Output   string // file path or masked dsn
	DryRun   bool
	Uploaded *blob.UploadResult
	Duration time.Duration
}

// Runner executes one collect, parse and export pass.
type Runner struct {
	config *config.Config
	runID  string
	logger *slog.Logger
	flock  *flock.Flock
}

func New(cfg *config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	var lock *flock.Flock
	if cfg.LockFile != "" {
		lock = flock.New(cfg.LockFile)
	}

	return &Runner{
		config: cfg,
		runID:  runID,
		logger: slog.Default().With("run", runID),
		flock:  lock,
	}, nil
}

func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.unlock()

	files, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}

	if r.config.MaxFiles > 0 && len(files) > r.config.MaxFiles {
		r.logger.Info("limiting files", "collected", len(files), "limit", r.config.MaxFiles)
		files = files[:r.config.MaxFiles]
	}

	parseOpts := []parser.Option{parser.WithSkipInvalid(r.config.SkipInvalid)}
	if r.config.Workers > 0 {
		parseOpts = append(parseOpts, parser.WithWorkers(r.config.Workers))
	}
	assignments, err := parser.ParseFiles(ctx, files, parseOpts...)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:   r.runID,
		Files:   len(assignments),
		Entries: parser.EntryCount(assignments),
		Format:  r.config.Format,
		DryRun:  r.config.DryRun,
	}

	expCfg := r.config.ExporterConfig()
	if expCfg.Format.IsFile() {
		summary.Output = expCfg.OutputPath
	} else {
		summary.Output = utils.MaskDSN(expCfg.DSN)
	}

	if r.config.DryRun {
		r.logger.Info("dry run, nothing exported", "files", summary.Files, "entries", summary.Entries)
		for _, a := range assignments {
			r.logger.Debug("parsed", "path", a.Path, "sha", a.FileSHA, "entries", len(a.Lines))
		}
		summary.Duration = time.Since(start)
		return summary, nil
	}

	exp, err := exporter.New(expCfg)
	if err != nil {
		return nil, err
	}
	if err := exp.Export(ctx, assignments); err != nil {
		return nil, err
	}

	if upCfg := r.config.UploadConfig(); upCfg != nil {
		if !expCfg.Format.IsFile() {
			r.logger.Warn("upload ignored for relational format", "format", expCfg.Format)
		} else {
			res, err := r.upload(ctx, upCfg, expCfg.OutputPath)
			if err != nil {
				return nil, err
			}
			summary.Uploaded = res
		}
	}

	summary.Duration = time.Since(start)
	r.logger.Info("run complete",
		"files", summary.Files,
		"entries", summary.Entries,
		"format", summary.Format,
		"output", summary.Output,
		"took", summary.Duration.Round(time.Millisecond))
	return summary, nil
}

func (r *Runner) collect(ctx context.Context) ([]*collector.RawFile, error) {
	if r.config.LocalDir != "" {
		r.logger.Info("reading local files", "dir", r.config.LocalDir, "pattern", r.config.LocalPattern)
		files, err := collector.ReadLocalFiles(r.config.LocalDir, r.config.LocalPattern)
		if err != nil {
			return nil, err
		}
		return r.withoutOwnFiles(files), nil
	}

	r.logger.Info("fetching", "base", r.config.BaseURL, "target", r.config.Target, "latest", r.config.Latest)
	opts := []collector.FetcherOption{collector.WithLatest(r.config.Latest)}
	if r.config.IndexPath != "" {
		opts = append(opts, collector.WithIndexPath(r.config.IndexPath))
	}
	if r.config.Timeout > 0 {
		opts = append(opts, collector.WithTimeout(r.config.Timeout))
	}

	files, err := collector.NewFetcher(r.config.BaseURL, opts...).FetchLatest(ctx, r.config.Target)
	if collector.IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w (check the base url and index path)", err)
	}
	return files, err
}

// withoutOwnFiles drops the lock and log files of this run when they live in LocalDir.
func (r *Runner) withoutOwnFiles(files []*collector.RawFile) []*collector.RawFile {
	own := make(map[string]bool, 2)
	for _, p := range []string{r.config.LockFile, r.config.LogFile} {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			own[abs] = true
		}
	}
	if len(own) == 0 {
		return files
	}

	return slices.DeleteFunc(files, func(f *collector.RawFile) bool {
		abs, err := filepath.Abs(filepath.Join(r.config.LocalDir, f.Path))
		if err != nil || !own[abs] {
			return false
		}
		r.logger.Debug("skipping own file", "path", abs)
		return true
	})
}

func (r *Runner) upload(ctx context.Context, cfg *blob.Config, path string) (*blob.UploadResult, error) {
	up, err := blob.NewUploaderWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return up.UploadFile(ctx, path)
}

func (r *Runner) lock() error {
	if r.flock == nil {
		return nil
	}
	if err := utils.EnsureParent(r.flock.Path()); err != nil {
		return fmt.Errorf("runner: create lock dir: %w", err)
	}

	locked, err := r.flock.TryLock()
	if err != nil {
		return fmt.Errorf("runner: lock %q: %w", r.flock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrRunLocked, r.flock.Path())
	}
	return nil
}

func (r *Runner) unlock() {
	if r.flock == nil || !r.flock.Locked() {
		return
	}
	// the file stays behind; removing it would let two runs lock different inodes
	if err := r.flock.Unlock(); err != nil {
		r.logger.Warn("unlock", "error", err)
	}
}
