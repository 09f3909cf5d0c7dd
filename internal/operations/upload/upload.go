// Package upload performs a single backup upload attempt: one multipart POST
// carrying every resolved file.
//
// Retrying is not this package's concern. A failed attempt is reported as an
// *errors.TransportError and the caller decides whether to try again.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
	"github.com/Wurst-Imperium/upload-backups/errors"
	"github.com/Wurst-Imperium/upload-backups/internal/transfer/multipart"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 4 << 10

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Uploader sends upload attempts over an HTTP client.
type Uploader struct {
	client Doer
	fs     billy.Filesystem
	logger *slog.Logger
}

// New creates a new Uploader reading files from filesystem.
func New(client Doer, filesystem billy.Filesystem, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		fs:     filesystem,
		logger: logger,
	}
}

// Attempt performs one upload attempt for req.
//
// Every file is opened at the start of the attempt and closed before Attempt
// returns. The attempt succeeds only on HTTP 200.
func (u *Uploader) Attempt(ctx context.Context, req *backuptypes.UploadRequest) error {
	group, err := multipart.Open(u.fs, req.Files)
	if err != nil {
		return &errors.TransportError{Err: err}
	}
	defer func() {
		if closeErr := group.Close(); closeErr != nil && u.logger != nil {
			u.logger.WarnContext(ctx, "failed to close backup files",
				"error", closeErr)
		}
	}()

	var body bytes.Buffer
	contentType, err := group.Encode(&body, backuptypes.FormField)
	if err != nil {
		return &errors.TransportError{Err: fmt.Errorf("encode request body: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body.Bytes()))
	if err != nil {
		return &errors.TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(backuptypes.APIKeyHeader, req.APIKey)

	if u.logger != nil {
		u.logger.DebugContext(ctx, "sending backup request",
			"url", req.URL,
			"files", group.Len(),
			"bytes", body.Len())
	}

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return &errors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &errors.TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
