// Package ghactions writes GitHub Actions workflow commands, step outputs and
// job summaries. Outside of Actions, outputs and summaries go to stdout.
package ghactions

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
)

// Environment variables set by the Actions runner.
const (
	EnvOutput      = "GITHUB_OUTPUT"
	EnvStepSummary = "GITHUB_STEP_SUMMARY"
)

// Reporter writes workflow commands to out and appends outputs and summaries
// to the files named by the runner environment.
type Reporter struct {
	out    io.Writer
	getenv func(string) string
	fs     billy.Filesystem
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithFilesystem sets the filesystem used for the output and summary files.
// Default is the host filesystem.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(r *Reporter) {
		r.fs = fs
	}
}

// New creates a Reporter. getenv is consulted on every call.
func New(out io.Writer, getenv func(string) string, opts ...Option) *Reporter {
	r := &Reporter{
		out:    out,
		getenv: getenv,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = osfs.New("/")
	}
	return r
}

// Error emits an ::error:: annotation.
func (r *Reporter) Error(message string) error {
	_, err := fmt.Fprintf(r.out, "::error::%s\n", escapeData(message))
	return err
}

// Traceback emits a collapsed group listing err and every error it wraps.
func (r *Reporter) Traceback(err error) error {
	var b strings.Builder
	b.WriteString("::group::Traceback\n")
	writeChain(&b, err, 0)
	b.WriteString("::endgroup::\n")

	_, werr := io.WriteString(r.out, b.String())
	return werr
}

// Output sets a step output. Multi-line values use a random delimiter.
func (r *Reporter) Output(key, value string) error {
	var line string
	if strings.ContainsAny(value, "\r\n") {
		delim := "ghadelimiter_" + uuid.NewString()
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delim, value, delim)
	} else {
		line = fmt.Sprintf("%s=%s\n", key, value)
	}
	return r.appendTo(EnvOutput, line)
}

// Summary appends markdown to the job summary.
func (r *Reporter) Summary(markdown string) error {
	return r.appendTo(EnvStepSummary, markdown+"\n")
}

func (r *Reporter) appendTo(envVar, text string) error {
	path := r.getenv(envVar)
	if path == "" {
		_, err := io.WriteString(r.out, text)
		return err
	}

	f, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", envVar, err)
	}
	if _, err := io.WriteString(f, text); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", envVar, err)
	}
	return f.Close()
}

func writeChain(b *strings.Builder, err error, depth int) {
	if err == nil {
		return
	}

	indent := strings.Repeat("  ", depth)
	if depth == 0 {
		fmt.Fprintf(b, "%T: %s\n", err, err)
	} else {
		fmt.Fprintf(b, "%scaused by %T: %s\n", indent, err, err)
	}

	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			writeChain(b, e, depth+1)
		}
	default:
		writeChain(b, errors.Unwrap(err), depth+1)
	}
}

var dataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

func escapeData(s string) string {
	return dataEscaper.Replace(s)
}
