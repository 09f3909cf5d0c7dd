// Package multipart opens the files of one upload attempt as a group and
// encodes them as a multipart/form-data body.
//
// A Group owns every handle it opened. Callers close it once the attempt is
// over, whatever the outcome, so no handle outlives the attempt.
package multipart

import (
	"errors"
	"fmt"
	"io"
	mpart "mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
)

// sniffLen is the number of leading bytes used for content type detection.
const sniffLen = 512

const defaultContentType = "application/octet-stream"

// Group is the set of open file handles used by a single attempt.
type Group struct {
	files   []backuptypes.ResolvedFile
	handles []billy.File
	closed  bool
}

// Open opens every file through filesystem. If any open fails, the handles
// opened so far are closed before the error is returned.
func Open(filesystem billy.Filesystem, files []backuptypes.ResolvedFile) (*Group, error) {
	g := &Group{
		files:   files,
		handles: make([]billy.File, 0, len(files)),
	}

	for _, f := range files {
		h, err := filesystem.Open(f.Path)
		if err != nil {
			openErr := fmt.Errorf("open %s: %w", f.Path, err)
			if closeErr := g.Close(); closeErr != nil {
				return nil, errors.Join(openErr, closeErr)
			}
			return nil, openErr
		}
		g.handles = append(g.handles, h)
	}

	return g, nil
}

// Len returns the number of open handles.
func (g *Group) Len() int {
	return len(g.handles)
}

// Close closes every handle in the group. It is safe to call more than once;
// only the first call does any work.
func (g *Group) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for i, h := range g.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", g.files[i].Path, err))
		}
	}
	g.handles = nil
	return errors.Join(errs...)
}

// Encode writes one part per handle to w, all under the form field name, and
// returns the Content-Type of the resulting body (including its boundary).
func (g *Group) Encode(w io.Writer, field string) (string, error) {
	if g.closed {
		return "", fmt.Errorf("encode: group already closed")
	}

	mw := mpart.NewWriter(w)

	for i, h := range g.handles {
		name := g.files[i].Name

		contentType, err := detectContentType(h)
		if err != nil {
			return "", fmt.Errorf("detect content type of %s: %w", name, err)
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(field), escapeQuotes(name)))
		header.Set("Content-Type", contentType)

		part, err := mw.CreatePart(header)
		if err != nil {
			return "", fmt.Errorf("create part for %s: %w", name, err)
		}
		if _, err := io.Copy(part, h); err != nil {
			return "", fmt.Errorf("write part for %s: %w", name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// detectContentType sniffs the start of f and rewinds it.
func detectContentType(f billy.File) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if n == 0 {
		return defaultContentType, nil
	}
	if mt := mimetype.Detect(buf[:n]); mt != nil {
		return mt.String(), nil
	}
	return defaultContentType, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
