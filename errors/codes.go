// Package errors provides the error taxonomy for artifact backup uploads.
// It pairs string-based error codes with typed errors so callers can decide
// between aborting, retrying and reporting without parsing messages.
package errors

// ErrorCode represents a specific error condition of a backup upload.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Validation errors.

	// CodeInvalidConfig indicates a configuration error prevents the upload,
	// such as a missing API key or an empty project identifier.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Resource errors.

	// CodeNotFound indicates a path pattern resolved to no files.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Infrastructure errors.

	// CodeNetwork indicates an upload attempt failed at the transport or HTTP level.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeRetriesExhausted indicates every attempt of the retry budget failed.
	CodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
