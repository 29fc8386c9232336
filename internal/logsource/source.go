// Package logsource exposes raw log files as re-readable streams of decoded lines.
package logsource

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// Source is a named stream of raw lines that can be read more than once.
// Each call to Lines starts from the beginning. A non-nil error is yielded
// at most once and ends the sequence.
type Source interface {
	Name() string
	Lines(ctx context.Context) iter.Seq2[string, error]
}

// Discover lists the regular files directly inside dir, sorted by name.
// Symlinks are followed; subdirectories are not descended into. When include
// is non-empty only base names matching the glob are kept.
func Discover(dir, include string, enc Encoding) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var out []Source
	for _, e := range entries {
		if include != "" {
			ok, err := filepath.Match(include, e.Name())
			if err != nil {
				return nil, fmt.Errorf("include pattern: %w", err)
			}
			if !ok {
				continue
			}
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, NewFile(path, enc))
	}
	return out, nil
}
