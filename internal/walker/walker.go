// Package walker enumerates the files of a skill directory that the
// scanner should inspect.
package walker

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Defaults applied by Walk when an option is left zero.
const (
	DefaultMaxFiles    = 100
	DefaultMaxFileSize = 1024 * 1024
)

// DefaultExcludedDirs are directory names never descended into.
var DefaultExcludedDirs = []string{
	"node_modules",
	".git",
	"tests",
	"test",
	"__pycache__",
	".pytest_cache",
}

// DefaultExtensions are the file extensions worth scanning.
var DefaultExtensions = []string{
	".js", ".ts", ".sh", ".py", ".md", ".json", ".yaml", ".yml",
}

// Options bounds a walk.
type Options struct {
	MaxFiles     int
	MaxFileSize  int64
	ExcludedDirs []string
	Extensions   []string
}

func (o Options) withDefaults() Options {
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.ExcludedDirs == nil {
		o.ExcludedDirs = DefaultExcludedDirs
	}
	if o.Extensions == nil {
		o.Extensions = DefaultExtensions
	}
	return o
}

// File is a file selected for scanning.
type File struct {
	Path string // absolute or root-joined path, for reading
	Rel  string // slash-separated, relative to the walk root
	Size int64
}

// Result is the output of a walk.
type Result struct {
	Files       []File
	DirsSkipped int
}

type queued struct {
	dir string
	rel string
}

// Walk collects scannable files under root breadth-first. Entries of a
// directory are visited in lexicographic order and symlinks are never
// followed, so the same tree always yields the same list.
func Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	excluded := make(map[string]struct{}, len(opts.ExcludedDirs))
	for _, d := range opts.ExcludedDirs {
		excluded[d] = struct{}{}
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	res := &Result{}
	queue := []queued{{dir: root}}

	for len(queue) > 0 && len(res.Files) < opts.MaxFiles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("walk interrupted: %w", err)
		}

		cur := queue[0]
		queue = queue[1:]

		// os.ReadDir returns entries sorted by name.
		entries, err := os.ReadDir(cur.dir)
		if err != nil {
			if cur.rel == "" {
				return nil, fmt.Errorf("failed to read directory %s: %w", root, err)
			}
			res.DirsSkipped++
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			rel := name
			if cur.rel != "" {
				rel = path.Join(cur.rel, name)
			}

			switch {
			case entry.Type()&os.ModeSymlink != 0:
				continue
			case entry.IsDir():
				if _, skip := excluded[name]; skip {
					continue
				}
				queue = append(queue, queued{dir: filepath.Join(cur.dir, name), rel: rel})
			case entry.Type().IsRegular():
				if _, ok := exts[strings.ToLower(filepath.Ext(name))]; !ok {
					continue
				}
				info, err := entry.Info()
				if err != nil || info.Size() > opts.MaxFileSize {
					continue
				}
				res.Files = append(res.Files, File{
					Path: filepath.Join(cur.dir, name),
					Rel:  rel,
					Size: info.Size(),
				})
				if len(res.Files) >= opts.MaxFiles {
					return res, nil
				}
			}
		}
	}

	return res, nil
}
