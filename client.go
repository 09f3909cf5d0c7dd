package backups

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
	"github.com/Wurst-Imperium/upload-backups/errors"
	"github.com/Wurst-Imperium/upload-backups/internal/operations/upload"
	"github.com/Wurst-Imperium/upload-backups/internal/resolve"
	"github.com/Wurst-Imperium/upload-backups/internal/retry"
)

// Client uploads backups to the backup service.
// It only holds immutable configuration and is safe to reuse.
type Client struct {
	config   backuptypes.ClientConfig
	baseURL  string
	resolver *resolve.Resolver
	uploader *upload.Uploader
	logger   *slog.Logger
}

// New creates a new backups client with the provided options.
//
// Example:
//
//	client, err := backups.New(
//	    backups.WithAPIKey(key),
//	    backups.WithWorkDir("/home/runner/work/wurst"),
//	)
func New(opts ...backuptypes.Option) (*Client, error) {
	cfg := backuptypes.ClientConfig{
		BaseURL:     backuptypes.DefaultBaseURL,
		Timeout:     backuptypes.DefaultTimeout,
		MaxAttempts: backuptypes.DefaultMaxAttempts,
		RetryDelay:  backuptypes.DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	baseURL, err := validateBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts < 1 {
		return nil, errors.NewConfigError("max_attempts", "must be at least 1")
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.NewConfigError("retry_delay", "must not be negative")
	}
	if cfg.Timeout < 0 {
		return nil, errors.NewConfigError("timeout", "must not be negative")
	}

	filesystem := cfg.Filesystem
	workDir := cfg.WorkDir
	if filesystem == nil {
		filesystem = osfs.New("/")
		if workDir == "" {
			if workDir, err = os.Getwd(); err != nil {
				return nil, errors.NewError("client initialization", err)
			}
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:  cfg,
		baseURL: baseURL,
		resolver: resolve.New(filesystem,
			resolve.WithWorkDir(workDir),
			resolve.WithLogger(cfg.Logger)),
		uploader: upload.New(httpClient, filesystem, cfg.Logger),
		logger:   cfg.Logger,
	}, nil
}

func validateBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.NewConfigError("base_url", "must be an absolute http(s) URL")
	}
	return strings.TrimSuffix(raw, "/"), nil
}

// Resolve expands a multi-line path specification into the files to upload.
// It fails with *errors.NoMatchError when a pattern matches nothing or the
// specification yields no files.
func (c *Client) Resolve(pathSpec string) ([]backuptypes.ResolvedFile, error) {
	return c.resolver.Resolve(pathSpec)
}

// BackupURL returns the upload destination for project and version.
func (c *Client) BackupURL(project, version string) string {
	return fmt.Sprintf("%s/artifact-backups/%s/%s",
		c.baseURL, url.PathEscape(project), url.PathEscape(version))
}

// NewRequest builds an upload request for files. The file slice is copied.
//
// It fails with *errors.ConfigError when project, version or the API key is
// empty, or when files is empty.
func (c *Client) NewRequest(project, version string, files []backuptypes.ResolvedFile) (*backuptypes.UploadRequest, error) {
	if err := c.validate(project, version); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.NewConfigError("files", "upload request needs at least one file")
	}

	return &backuptypes.UploadRequest{
		URL:     c.BackupURL(project, version),
		Project: project,
		Version: version,
		APIKey:  c.config.APIKey,
		Files:   append([]backuptypes.ResolvedFile(nil), files...),
	}, nil
}

func (c *Client) validate(project, version string) error {
	if c.config.APIKey == "" {
		return errors.NewConfigError("", "API key is missing or empty.")
	}
	if project == "" {
		return errors.NewConfigError("project", "must not be empty")
	}
	if version == "" {
		return errors.NewConfigError("version", "must not be empty")
	}
	return nil
}

// Upload sends req, retrying the whole batch on any failure.
//
// The returned outcome is never nil. When every attempt fails the error is an
// *errors.ExhaustedRetriesError wrapping the last attempt's error. When ctx
// ends the run early the error wraps the context error instead.
func (c *Client) Upload(ctx context.Context, req *backuptypes.UploadRequest) (*backuptypes.UploadOutcome, error) {
	start := time.Now()
	outcome := &backuptypes.UploadOutcome{
		State: backuptypes.StatePending,
		URL:   req.URL,
	}
	if len(req.Files) == 0 {
		outcome.State = backuptypes.StateFailed
		return outcome, errors.NewConfigError("files", "upload request needs at least one file")
	}

	logger := c.logger
	if logger != nil {
		logger = logger.With("upload_id", uuid.NewString())
		logger.InfoContext(ctx, "uploading files",
			"count", len(req.Files),
			"url", req.URL)
	}

	retrier := retry.New(
		retry.Policy{MaxAttempts: c.config.MaxAttempts, Delay: c.config.RetryDelay},
		retry.WithSleeper(c.config.Sleeper),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			if logger != nil {
				logger.WarnContext(ctx, "upload attempt failed, retrying",
					"attempt", attempt,
					"error", err,
					"delay", delay)
			}
		}),
	)

	result := retrier.Do(ctx, func(ctx context.Context, _ int) error {
		return c.uploader.Attempt(ctx, req)
	})

	outcome.State = result.State
	outcome.Success = result.State == backuptypes.StateSuccess
	outcome.Attempts = result.Attempts
	outcome.Retries = result.Retries
	outcome.Duration = time.Since(start)

	if outcome.Success {
		outcome.FilesUploaded = len(req.Files)
		if logger != nil {
			logger.InfoContext(ctx, "uploaded files",
				"count", outcome.FilesUploaded,
				"url", req.URL,
				"attempts", outcome.Attempts,
				"duration", outcome.Duration)
		}
		return outcome, nil
	}

	if result.Cancelled {
		return outcome, errors.NewError("upload", result.Err).WithProject(req.Project, req.Version)
	}
	return outcome, &errors.ExhaustedRetriesError{
		Attempts: result.Attempts,
		Last:     result.Err,
	}
}

// Backup resolves pathSpec and uploads the resulting files for project and
// version. Configuration and resolution errors are returned before any
// network activity.
func (c *Client) Backup(ctx context.Context, project, version, pathSpec string) (*backuptypes.UploadOutcome, error) {
	if err := c.validate(project, version); err != nil {
		return nil, err
	}

	files, err := c.Resolve(pathSpec)
	if err != nil {
		return nil, err
	}

	req, err := c.NewRequest(project, version, files)
	if err != nil {
		return nil, err
	}

	return c.Upload(ctx, req)
}
