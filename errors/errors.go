package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four failure classes of a backup upload.
// Every typed error in this package matches exactly one of them via errors.Is.
var (
	// ErrConfig indicates invalid or missing configuration. Never retried.
	ErrConfig = errors.New("backups: invalid configuration")

	// ErrNoMatch indicates that path resolution found no files. Never retried.
	ErrNoMatch = errors.New("backups: no files matched")

	// ErrTransport indicates a failed upload attempt. Retried while attempts remain.
	ErrTransport = errors.New("backups: transport failure")

	// ErrExhaustedRetries indicates that the retry budget was spent.
	ErrExhaustedRetries = errors.New("backups: retries exhausted")
)

// Error represents a backup operation error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "resolve", "upload")
	Op string

	// Project is the backup project identifier (if applicable)
	Project string

	// Version is the backup version identifier (if applicable)
	Version string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Project != "" && e.Version != "" {
		return fmt.Sprintf("backups.%s %s/%s: %v", e.Op, e.Project, e.Version, e.Err)
	}
	if e.Project != "" {
		return fmt.Sprintf("backups.%s project %s: %v", e.Op, e.Project, e.Err)
	}
	return fmt.Sprintf("backups.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithProject adds project and version context to an existing error.
func (e *Error) WithProject(project, version string) *Error {
	e.Project = project
	e.Version = version
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// ConfigError reports a configuration value that is missing or invalid.
// The offending value is never included since it may be a credential.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NoMatchError reports that path resolution produced no files. Pattern is set
// when a single line matched nothing and does not exist; PathSpec is set when
// the whole specification resolved to an empty list.
type NoMatchError struct {
	Pattern  string
	PathSpec string
}

func (e *NoMatchError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("No files matched pattern: %s", e.Pattern)
	}
	return fmt.Sprintf("No files found matching path: %s", e.PathSpec)
}

// Is reports whether target is ErrNoMatch.
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// TransportError reports a single failed upload attempt: either a non-200
// response (StatusCode and Body set) or a lower level failure (Err set).
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap returns the underlying transport error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ExhaustedRetriesError wraps the last attempt error once the retry budget is spent.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("failed to upload backups after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the error of the final attempt.
func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// Is reports whether target is ErrExhaustedRetries.
func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// IsConfig checks if an error indicates invalid configuration.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsNoMatch checks if an error indicates that no files were resolved.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}

// IsTransport checks if an error indicates a failed upload attempt.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsExhaustedRetries checks if an error indicates that all attempts failed.
func IsExhaustedRetries(err error) bool {
	return errors.Is(err, ErrExhaustedRetries)
}

// CodeOf classifies err into an ErrorCode. Exhausted retries take precedence
// over the transport error they wrap.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsExhaustedRetries(err):
		return CodeRetriesExhausted
	case IsConfig(err):
		return CodeInvalidConfig
	case IsNoMatch(err):
		return CodeNotFound
	case IsTransport(err):
		return CodeNetwork
	default:
		return CodeUnknown
	}
}
