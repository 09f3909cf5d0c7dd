// Package testutil provides fakes and helpers shared by the package tests.
// It is internal and only meant for tests within this module.
package testutil

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// UploadedFile is one multipart part received by the fake service.
type UploadedFile struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// Upload is one request received by the fake service.
type Upload struct {
	Project     string
	Version     string
	APIKey      string
	Accept      string
	ContentType string
	Files       []UploadedFile
}

// BackupServer is a fake backup service. It answers each upload with the next
// scripted status code and records what it received.
type BackupServer struct {
	*httptest.Server

	mu       sync.Mutex
	statuses []int
	uploads  []Upload
}

// NewBackupServer starts a fake backup service. The i-th upload is answered
// with statuses[i]; once the script runs out the last status repeats. With no
// statuses every upload succeeds. The server is closed when the test ends.
func NewBackupServer(t testing.TB, statuses ...int) *BackupServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s := &BackupServer{statuses: statuses}

	router := gin.New()
	router.POST("/artifact-backups/:project/:version", s.handleUpload)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// Uploads returns a copy of every upload received so far.
func (s *BackupServer) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// Requests returns the number of uploads received so far.
func (s *BackupServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *BackupServer) handleUpload(c *gin.Context) {
	upload := Upload{
		Project:     c.Param("project"),
		Version:     c.Param("version"),
		APIKey:      c.GetHeader("X-API-Key"),
		Accept:      c.GetHeader("Accept"),
		ContentType: c.ContentType(),
	}

	if form, err := c.MultipartForm(); err == nil {
		for field, headers := range form.File {
			for _, fh := range headers {
				content, err := readFormFile(fh)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				upload.Files = append(upload.Files, UploadedFile{
					Field:       field,
					Name:        fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Content:     content,
				})
			}
		}
	}

	s.mu.Lock()
	status := s.statusFor(len(s.uploads))
	s.uploads = append(s.uploads, upload)
	s.mu.Unlock()

	if status != http.StatusOK {
		c.String(status, "backup rejected")
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": len(upload.Files)})
}

func (s *BackupServer) statusFor(i int) int {
	switch {
	case len(s.statuses) == 0:
		return http.StatusOK
	case i < len(s.statuses):
		return s.statuses[i]
	default:
		return s.statuses[len(s.statuses)-1]
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
