package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
)

// EnvBaseURL overrides the backup service host.
const EnvBaseURL = "WI_BACKUPS_URL"

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type config struct {
	project    string
	version    string
	pathSpec   string
	baseURL    string
	workDir    string
	retryDelay time.Duration
	logLevel   string
	logFormat  string
}

// parseArgs processes command-line arguments. The boolean result reports
// that the program should exit cleanly, as after -h.
func parseArgs(args []string, getenv func(string) string, output io.Writer) (*config, bool, error) {
	flagSet := flag.NewFlagSet("upload-backups", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
upload-backups - Upload build artifacts to the Wurst-Imperium backup service.

Usage:
  upload-backups [options] PROJECT VERSION PATHS

Arguments:
  PROJECT   Backup project identifier.
  VERSION   Backup version identifier.
  PATHS     Files, directories or glob patterns, one per line.

Environment:
  WI_BACKUPS_API_KEY             API key sent with the upload.
  WI_BACKUPS_API_KEY_SECRET_ID   AWS Secrets Manager secret holding the key,
                                 used when WI_BACKUPS_API_KEY is empty.
  WI_BACKUPS_URL                 Backup service URL (same as -url).

Options:
`)
		flagSet.PrintDefaults()
	}

	defaultURL := getenv(EnvBaseURL)
	if defaultURL == "" {
		defaultURL = backuptypes.DefaultBaseURL
	}

	urlFlag := flagSet.String("url", defaultURL, "Backup service URL.")
	workDirFlag := flagSet.String("workdir", "", "Directory relative paths are resolved against. Defaults to the current directory.")
	retryDelayFlag := flagSet.Duration("retry-delay", backuptypes.DefaultRetryDelay, "Wait between upload attempts.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		// flag has already reported the error and usage to output.
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() != 3 {
		flagSet.Usage()
		return nil, false, usageError(output,
			fmt.Sprintf("expected 3 arguments (project, version, paths), got %d", flagSet.NArg()))
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError(output, "invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError(output, "invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if *retryDelayFlag < 0 {
		return nil, false, usageError(output, "invalid retry-delay: must not be negative")
	}

	return &config{
		project:    flagSet.Arg(0),
		version:    flagSet.Arg(1),
		pathSpec:   flagSet.Arg(2),
		baseURL:    *urlFlag,
		workDir:    *workDirFlag,
		retryDelay: *retryDelayFlag,
		logLevel:   logLevel,
		logFormat:  logFormat,
	}, false, nil
}

// usageError reports msg on output and returns it as a usage failure.
func usageError(output io.Writer, msg string) *ExitError {
	fmt.Fprintln(output, msg)
	return &ExitError{Code: 2, Message: msg}
}

// newLogger creates a logger for the given level and format names.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
