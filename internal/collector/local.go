package collector

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

const DefaultLocalPattern = "*"

// ReadLocalFiles reads every regular file directly inside dir whose name matches
// pattern. Sub-directories are not descended into.
func ReadLocalFiles(dir, pattern string) ([]*RawFile, error) {
	if pattern == "" {
		pattern = DefaultLocalPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("collector: invalid pattern %q", pattern)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("collector: read dir %q: %w", dir, err)
	}

	files := make([]*RawFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(pattern, entry.Name()); !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("collector: stat %q: %w", path, err)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("collector: read %q: %w", path, err)
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEncoding, path)
		}

		files = append(files, &RawFile{
			Path:         entry.Name(),
			Raw:          raw,
			Content:      string(raw),
			LastModified: info.ModTime().UnixMilli(),
		})
	}

	slog.Info("local files", "dir", dir, "pattern", pattern, "files", len(files))
	return files, nil
}
