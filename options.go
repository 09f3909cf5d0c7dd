package backups

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
)

// WithBaseURL sets the scheme and host of the backup service.
// Default is https://api.wurstclient.net.
func WithBaseURL(baseURL string) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithAPIKey sets the key sent in the X-API-Key header.
func WithAPIKey(apiKey string) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.APIKey = apiKey
	}
}

// WithTimeout sets the timeout of a single upload request.
// Default is 120 seconds. Ignored when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxAttempts sets the total number of upload attempts. Default is 3.
func WithMaxAttempts(attempts int) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.MaxAttempts = attempts
	}
}

// WithRetryDelay sets the wait between two attempts. Default is 5 seconds.
func WithRetryDelay(delay time.Duration) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.RetryDelay = delay
	}
}

// WithHTTPClient sets the HTTP client used for uploads.
func WithHTTPClient(client *http.Client) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithFilesystem sets the filesystem that patterns are resolved against and
// files are read from. Default is the host filesystem.
func WithFilesystem(filesystem billy.Filesystem) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithWorkDir sets the directory relative patterns are resolved against.
// Defaults to the process working directory on the host filesystem and to
// "/" on a custom one.
func WithWorkDir(dir string) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.WorkDir = dir
	}
}

// WithLogger sets the logger. Without one the client does not log.
func WithLogger(logger *slog.Logger) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleeper backuptypes.Sleeper) backuptypes.Option {
	return func(c *backuptypes.ClientConfig) {
		c.Sleeper = sleeper
	}
}
