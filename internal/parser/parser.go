package parser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/bridgepool/bridgepool/internal/collector"
	"golang.org/x/sync/errgroup"
)

const (
	HeaderToken = "bridge-pool-assignment"

	headerTimeLayout = "2006-01-02 15:04:05"
)

var fingerprintRe = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)

type parseConfig struct {
	workers     int
	skipInvalid bool
}

// Option configures ParseFiles
type Option func(*parseConfig)

// WithWorkers bounds how many files are parsed concurrently
func WithWorkers(n int) Option {
	return func(c *parseConfig) {
		c.workers = n
	}
}

// WithSkipInvalid drops files with a file-level error instead of failing the batch
func WithSkipInvalid(skip bool) Option {
	return func(c *parseConfig) {
		c.skipInvalid = skip
	}
}

// ParseFiles parses every file independently and returns the assignments in input order.
// By default the first file-level error aborts the whole batch.
func ParseFiles(ctx context.Context, files []*collector.RawFile, opts ...Option) ([]*Assignment, error) {
	cfg := &parseConfig{
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	results := make([]*Assignment, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			parsed, err := ParseFile(file)
			if err != nil {
				if cfg.skipInvalid {
					slog.Warn("skipping invalid file", "path", file.Path, "error", err)
					return nil
				}
				return fmt.Errorf("parse %q: %w", file.Path, err)
			}

			results[i] = parsed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.DeleteFunc(results, func(a *Assignment) bool { return a == nil }), nil
}

// ParseFile validates a raw report and computes its digests.
func ParseFile(file *collector.RawFile) (*Assignment, error) {
	lines := splitLines(file.Content)

	headerIdx := slices.IndexFunc(lines, func(l string) bool {
		return strings.HasPrefix(l, HeaderToken)
	})
	if headerIdx < 0 {
		return nil, ErrMissingHeader
	}
	header := lines[headerIdx]

	published, err := parseHeaderTime(header)
	if err != nil {
		return nil, err
	}

	fileSHA := HashBytes(file.Raw)

	entries := make([]*LineEntry, 0, len(lines))
	for i, line := range lines {
		if i == headerIdx {
			continue
		}

		entry, err := ParseLine(line)
		if err != nil {
			continue
		}
		if err := checkFingerprint(entry.Fingerprint); err != nil {
			continue
		}

		entry.SHA = HashEntry([]byte(line), fileSHA)
		entries = append(entries, entry)
	}

	return &Assignment{
		Path:      file.Path,
		FileSHA:   fileSHA,
		Published: published,
		Header:    header,
		Lines:     entries,
	}, nil
}

// parseHeaderTime reads "bridge-pool-assignment YYYY-MM-DD HH:MM:SS" as UTC.
func parseHeaderTime(header string) (int64, error) {
	parts := strings.Fields(header)
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidTimestamp, len(parts))
	}

	t, err := time.Parse(headerTimeLayout, parts[1]+" "+parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
	}
	return t.UnixMilli(), nil
}

func checkFingerprint(fp string) error {
	if !fingerprintRe.MatchString(fp) {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, fp)
	}
	return nil
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
