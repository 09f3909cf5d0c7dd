// Package backuptypes provides shared type definitions for the backups module.
package backuptypes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
)

// Defaults for a backup upload.
const (
	// DefaultBaseURL is the backup service host.
	DefaultBaseURL = "https://api.wurstclient.net"

	// DefaultTimeout is the client-side request timeout. The server usually
	// times out after 100 seconds, so this is only a fallback.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxAttempts is the retry budget, counting the first attempt.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed wait between two attempts.
	DefaultRetryDelay = 5 * time.Second

	// APIKeyHeader carries the API key on every upload request.
	APIKeyHeader = "X-API-Key"

	// FormField is the multipart field name shared by every uploaded file.
	FormField = "files"
)

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// ClientConfig holds the configuration of a backups client.
type ClientConfig struct {
	// BaseURL is the scheme and host of the backup service
	BaseURL string

	// APIKey is passed through opaquely in the APIKeyHeader
	APIKey string

	// Timeout bounds a single HTTP request
	Timeout time.Duration

	// MaxAttempts is the total number of upload attempts
	MaxAttempts int

	// RetryDelay is the wait between failed attempts
	RetryDelay time.Duration

	// HTTPClient overrides the default client built from Timeout
	HTTPClient *http.Client

	// Filesystem is used for path resolution and reading files
	Filesystem billy.Filesystem

	// WorkDir anchors relative path patterns
	WorkDir string

	// Logger receives informational records; nil disables logging
	Logger *slog.Logger

	// Sleeper overrides the wait between attempts (used in tests)
	Sleeper Sleeper
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// ResolvedFile is a path confirmed to reference an existing regular file at
// resolution time.
type ResolvedFile struct {
	// Path is the location of the file inside the configured filesystem
	Path string

	// Name is the base name, used as the multipart filename
	Name string

	// Size is the file size in bytes at resolution time
	Size int64
}

// UploadRequest describes one backup upload. It is built once per invocation
// and not modified afterwards.
type UploadRequest struct {
	// URL is the destination derived from Project and Version
	URL string

	// Project is the backup project identifier
	Project string

	// Version is the backup version identifier
	Version string

	// APIKey authenticates the request
	APIKey string

	// Files holds every file to upload, in resolution order
	Files []ResolvedFile
}

// State is a state of the upload state machine.
type State int

// Upload states. Pending is initial; Success and Failed are terminal.
const (
	StatePending State = iota
	StateAttempting
	StateSuccess
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// UploadOutcome is the result of an upload. On failure it is returned together
// with the terminal error.
type UploadOutcome struct {
	// State is StateSuccess or StateFailed
	State State

	// Success mirrors State == StateSuccess
	Success bool

	// FilesUploaded is the number of files sent in the successful attempt
	FilesUploaded int

	// URL is the destination of the upload
	URL string

	// Attempts is the number of attempts made
	Attempts int

	// Retries is the number of waits that elapsed between attempts
	Retries int

	// Duration is the wall time of the whole upload
	Duration time.Duration
}
