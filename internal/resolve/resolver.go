// Package resolve turns a multi-line path specification into the list of
// regular files to back up.
//
// Each non-blank line is a pattern. Patterns are expanded as globs (with
// recursive ** support); a pattern without glob matches falls back to a
// literal path. Wildcards never match names starting with a dot unless the
// pattern segment itself starts with one. Directories contribute the regular
// files directly inside them. Resolution stops at the first pattern that
// matches nothing.
package resolve

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/iofs"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
	"github.com/Wurst-Imperium/upload-backups/errors"
)

// Resolver resolves path specifications against a filesystem rooted at "/".
type Resolver struct {
	fs      billy.Filesystem
	glob    fs.FS
	workDir string
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorkDir sets the directory relative patterns are resolved against.
// Default is "/".
func WithWorkDir(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.workDir = path.Clean(filepath.ToSlash(dir))
		}
	}
}

// WithLogger sets the logger for resolution records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver over filesystem.
func New(filesystem billy.Filesystem, opts ...Option) *Resolver {
	r := &Resolver{
		fs:      filesystem,
		glob:    iofs.New(filesystem),
		workDir: "/",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands pathSpec into an ordered list of regular files.
//
// It fails with *errors.NoMatchError carrying the pattern when a line matches
// nothing and does not exist, and with *errors.NoMatchError carrying the whole
// pathSpec when the aggregate result is empty. Duplicates produced by
// overlapping patterns are kept.
func (r *Resolver) Resolve(pathSpec string) ([]backuptypes.ResolvedFile, error) {
	var files []backuptypes.ResolvedFile

	for _, line := range strings.Split(pathSpec, "\n") {
		pattern := strings.TrimSpace(line)
		if pattern == "" {
			continue
		}

		matches, err := r.expand(pattern)
		if err != nil {
			return nil, err
		}

		for _, match := range matches {
			files, err = r.collect(files, match)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(files) == 0 {
		return nil, &errors.NoMatchError{PathSpec: pathSpec}
	}

	if r.logger != nil {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		r.logger.Info("found files to upload",
			"count", len(files),
			"files", names)
	}

	return files, nil
}

// expand returns the filesystem paths matched by pattern, falling back to the
// literal path when the glob matches nothing.
func (r *Resolver) expand(pattern string) ([]string, error) {
	abs := r.abs(pattern)

	globPattern := strings.TrimPrefix(abs, "/")
	if globPattern == "" {
		globPattern = "."
	}

	matches, err := doublestar.Glob(r.glob, globPattern)
	if err != nil {
		// Malformed glob syntax is treated like a pattern without matches.
		if r.logger != nil {
			r.logger.Debug("glob expansion failed",
				"pattern", pattern,
				"error", err)
		}
		matches = nil
	}

	segments := strings.Split(globPattern, "/")
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if !visible(segments, strings.Split(m, "/")) {
			continue
		}
		paths = append(paths, path.Join("/", m))
	}

	if len(paths) == 0 {
		// Lstat so that a symlink counts as existing even when its target does not.
		if _, err := r.fs.Lstat(abs); err != nil {
			return nil, &errors.NoMatchError{Pattern: pattern}
		}
		return []string{abs}, nil
	}
	return paths, nil
}

// visible reports whether name segments can be matched by pattern segments
// without a wildcard consuming a name that starts with a dot.
func visible(pattern, name []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}

	seg := pattern[0]
	if seg == "**" {
		if visible(pattern[1:], name) {
			return true
		}
		return len(name) > 0 && !strings.HasPrefix(name[0], ".") && visible(pattern, name[1:])
	}

	if len(name) == 0 {
		return false
	}
	if strings.HasPrefix(name[0], ".") && !strings.HasPrefix(seg, ".") {
		return false
	}
	if ok, err := doublestar.Match(seg, name[0]); err != nil || !ok {
		return false
	}
	return visible(pattern[1:], name[1:])
}

// collect appends match to files if it is a regular file, or the regular files
// directly inside it if it is a directory. Anything else is skipped.
func (r *Resolver) collect(files []backuptypes.ResolvedFile, match string) ([]backuptypes.ResolvedFile, error) {
	info, err := r.fs.Stat(match)
	if err != nil {
		// Dangling symlinks and entries that vanished since globbing.
		return files, nil
	}

	switch {
	case info.Mode().IsRegular():
		return append(files, newResolvedFile(match, info)), nil

	case info.IsDir():
		entries, err := r.fs.ReadDir(match)
		if err != nil {
			return nil, errors.NewError("resolve", fmt.Errorf("list directory %s: %w", match, err))
		}
		for _, entry := range entries {
			child := path.Join(match, entry.Name())
			childInfo, err := r.fs.Stat(child)
			if err != nil || !childInfo.Mode().IsRegular() {
				continue
			}
			files = append(files, newResolvedFile(child, childInfo))
		}
		return files, nil

	default:
		return files, nil
	}
}

func (r *Resolver) abs(pattern string) string {
	p := filepath.ToSlash(pattern)
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(r.workDir, p)
}

func newResolvedFile(p string, info fs.FileInfo) backuptypes.ResolvedFile {
	return backuptypes.ResolvedFile{
		Path: p,
		Name: path.Base(p),
		Size: info.Size(),
	}
}
