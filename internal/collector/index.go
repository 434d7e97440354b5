package collector

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	DefaultIndexPath = "index/index.json"
	DefaultLatest    = 10

	// last_modified in the index has minute precision
	indexTimeLayout = "2006-01-02 15:04"
)

// ParseIndex decodes an index document.
func ParseIndex(data []byte) (*Index, error) {
	var idx Index
	if err := jsonUnmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrIndexStructure, err)
	}
	return &idx, nil
}

// ResolveLatest walks the index down to target and returns up to limit files,
// most recently modified first. Files sharing a timestamp keep their index order.
// A limit <= 0 returns every file.
func ResolveLatest(idx *Index, target string, limit int) ([]IndexEntry, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: empty index", ErrIndexStructure)
	}

	segments := strings.Split(strings.Trim(target, "/"), "/")
	nodes := idx.Directories

	var node *IndexNode
	for _, seg := range segments {
		if nodes == nil {
			return nil, fmt.Errorf("%w: expected directories while looking for %q", ErrIndexStructure, seg)
		}
		node = findDir(nodes, seg)
		if node == nil {
			return nil, fmt.Errorf("%w: directory %q not found", ErrIndexStructure, seg)
		}
		nodes = node.Directories
	}

	if node.Files == nil {
		return nil, fmt.Errorf("%w: %q has no files list", ErrIndexStructure, target)
	}

	prefix := strings.TrimRight(target, "/")
	entries := make([]IndexEntry, 0, len(node.Files))
	for i, f := range node.Files {
		if f == nil || f.Path == nil {
			return nil, fmt.Errorf("%w: file #%d in %q missing path", ErrIndexStructure, i, target)
		}
		entries = append(entries, IndexEntry{
			Path:         prefix + "/" + *f.Path,
			LastModified: parseIndexTime(f.LastModified),
		})
	}

	slices.SortStableFunc(entries, func(a, b IndexEntry) int {
		switch {
		case a.LastModified > b.LastModified:
			return -1
		case a.LastModified < b.LastModified:
			return 1
		}
		return 0
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func findDir(nodes []*IndexNode, name string) *IndexNode {
	for _, n := range nodes {
		if n != nil && n.Path == name {
			return n
		}
	}
	return nil
}

// parseIndexTime falls back to the epoch so undated files sort last.
func parseIndexTime(s *string) int64 {
	if s == nil {
		return 0
	}
	t, err := time.Parse(indexTimeLayout, *s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
