// Command upload-backups uploads build artifacts to the Wurst-Imperium backup
// service from a CI job.
//
// Usage:
//
//	upload-backups [options] PROJECT VERSION PATHS
//
// Failures are reported as GitHub Actions ::error:: annotations and a non-zero
// exit code. On success the step outputs files-uploaded and backup-url are set.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	backups "github.com/Wurst-Imperium/upload-backups"
	"github.com/Wurst-Imperium/upload-backups/backuptypes"
	"github.com/Wurst-Imperium/upload-backups/errors"
	"github.com/Wurst-Imperium/upload-backups/internal/credentials"
	"github.com/Wurst-Imperium/upload-backups/internal/ghactions"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// run executes one invocation. Workflow commands and outputs go to stdout,
// logs and usage go to stderr.
func run(
	ctx context.Context,
	args []string,
	getenv func(string) string,
	stdout, stderr io.Writer,
	opts ...backuptypes.Option,
) error {
	cfg, shouldExit, err := parseArgs(args, getenv, stderr)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(cfg.logLevel, cfg.logFormat, stderr)
	reporter := ghactions.New(stdout, getenv)

	outcome, err := backup(ctx, cfg, getenv, logger, opts)
	if err != nil {
		_ = reporter.Error(err.Error())
		if !errors.IsConfig(err) && !errors.IsNoMatch(err) {
			_ = reporter.Traceback(err)
		}
		return &ExitError{Code: 1, Message: err.Error()}
	}

	if err := report(reporter, outcome); err != nil {
		logger.WarnContext(ctx, "failed to write step outputs", "error", err)
	}
	return nil
}

func backup(
	ctx context.Context,
	cfg *config,
	getenv func(string) string,
	logger *slog.Logger,
	opts []backuptypes.Option,
) (*backuptypes.UploadOutcome, error) {
	sources, err := credentials.FromEnvironment(ctx, getenv, credentials.WithLogger(logger))
	if err != nil {
		return nil, errors.NewError("credentials", err)
	}
	apiKey, err := credentials.Resolve(ctx, sources...)
	if err != nil {
		return nil, err
	}

	clientOpts := []backuptypes.Option{
		backups.WithBaseURL(cfg.baseURL),
		backups.WithAPIKey(apiKey),
		backups.WithRetryDelay(cfg.retryDelay),
		backups.WithLogger(logger),
	}
	if cfg.workDir != "" {
		clientOpts = append(clientOpts, backups.WithWorkDir(cfg.workDir))
	}

	client, err := backups.New(append(clientOpts, opts...)...)
	if err != nil {
		return nil, err
	}

	return client.Backup(ctx, cfg.project, cfg.version, cfg.pathSpec)
}

func report(reporter *ghactions.Reporter, outcome *backuptypes.UploadOutcome) error {
	if err := reporter.Output("files-uploaded", strconv.Itoa(outcome.FilesUploaded)); err != nil {
		return err
	}
	if err := reporter.Output("backup-url", outcome.URL); err != nil {
		return err
	}

	noun := "files"
	if outcome.FilesUploaded == 1 {
		noun = "file"
	}
	return reporter.Summary(fmt.Sprintf("### Backups uploaded\n\nUploaded %d %s to `%s` in %d attempt(s).",
		outcome.FilesUploaded, noun, outcome.URL, outcome.Attempts))
}
