package testutil

import (
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

// NewMemFS returns an in-memory filesystem populated with files (path to
// content) and the given empty directories.
func NewMemFS(t testing.TB, files map[string]string, dirs ...string) billy.Filesystem {
	t.Helper()

	fs := memfs.New()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

// TrackingFS wraps a billy.Filesystem and counts the handles returned by Open
// that have not been closed yet.
type TrackingFS struct {
	billy.Filesystem

	mu     sync.Mutex
	open   int
	opened int
}

// NewTrackingFS wraps fs.
func NewTrackingFS(fs billy.Filesystem) *TrackingFS {
	return &TrackingFS{Filesystem: fs}
}

// Open opens the named file and tracks the returned handle.
func (t *TrackingFS) Open(filename string) (billy.File, error) {
	f, err := t.Filesystem.Open(filename)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.open++
	t.opened++
	t.mu.Unlock()

	return &trackedFile{File: f, fs: t}, nil
}

// OpenHandles returns the number of handles currently open.
func (t *TrackingFS) OpenHandles() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// TotalOpened returns the number of successful Open calls so far.
func (t *TrackingFS) TotalOpened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

type trackedFile struct {
	billy.File

	fs     *TrackingFS
	closed bool
}

func (f *trackedFile) Close() error {
	if !f.closed {
		f.closed = true
		f.fs.mu.Lock()
		f.fs.open--
		f.fs.mu.Unlock()
	}
	return f.File.Close()
}
