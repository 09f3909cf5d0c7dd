package upload

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
	"github.com/Wurst-Imperium/upload-backups/errors"
	"github.com/Wurst-Imperium/upload-backups/internal/testutil"
)

func testFiles() map[string]string {
	return map[string]string{
		"/work/a.txt":   "alpha",
		"/work/b/c.txt": "charlie",
	}
}

func testRequest(url string) *backuptypes.UploadRequest {
	return &backuptypes.UploadRequest{
		URL:     url,
		Project: "wurst",
		Version: "7.0",
		APIKey:  "secret-key",
		Files: []backuptypes.ResolvedFile{
			{Path: "/work/a.txt", Name: "a.txt", Size: 5},
			{Path: "/work/b/c.txt", Name: "c.txt", Size: 7},
		},
	}
}

func TestUploader_Attempt_WireFormat(t *testing.T) {
	server := testutil.NewBackupServer(t)
	fs := testutil.NewTrackingFS(testutil.NewMemFS(t, testFiles()))
	u := New(server.Client(), fs, nil)

	err := u.Attempt(context.Background(), testRequest(server.URL+"/artifact-backups/wurst/7.0"))
	require.NoError(t, err)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)

	got := uploads[0]
	assert.Equal(t, "wurst", got.Project)
	assert.Equal(t, "7.0", got.Version)
	assert.Equal(t, "secret-key", got.APIKey)
	assert.Equal(t, "application/json", got.Accept)
	assert.Equal(t, "multipart/form-data", got.ContentType)

	require.Len(t, got.Files, 2)
	assert.Equal(t, "files", got.Files[0].Field)
	assert.Equal(t, "a.txt", got.Files[0].Name)
	assert.Equal(t, "alpha", string(got.Files[0].Content))
	assert.Equal(t, "files", got.Files[1].Field)
	assert.Equal(t, "c.txt", got.Files[1].Name)
	assert.Equal(t, "charlie", string(got.Files[1].Content))
	assert.Equal(t, "text/plain; charset=utf-8", got.Files[0].ContentType)

	assert.Equal(t, 0, fs.OpenHandles())
}

func TestUploader_Attempt_StatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "created is not success", status: http.StatusCreated, wantErr: true},
		{name: "no content is not success", status: http.StatusNoContent, wantErr: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewBackupServer(t, tt.status)
			fs := testutil.NewTrackingFS(testutil.NewMemFS(t, testFiles()))
			u := New(server.Client(), fs, nil)

			err := u.Attempt(context.Background(), testRequest(server.URL+"/artifact-backups/wurst/7.0"))
			assert.Equal(t, 0, fs.OpenHandles())

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.IsTransport(err))

			var te *errors.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.status, te.StatusCode)
		})
	}
}

func TestUploader_Attempt_ErrorMessageCarriesBody(t *testing.T) {
	mock := &testutil.MockDoer{
		DoFunc: func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("database unavailable\n")),
			}, nil
		},
	}
	u := New(mock, testutil.NewMemFS(t, testFiles()), nil)

	err := u.Attempt(context.Background(), testRequest("http://backups.invalid/artifact-backups/wurst/7.0"))
	require.Error(t, err)
	assert.EqualError(t, err, "HTTP 500: database unavailable")
}

func TestUploader_Attempt_ErrorBodyIsTruncated(t *testing.T) {
	mock := &testutil.MockDoer{
		DoFunc: func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 3*maxErrorBody))),
			}, nil
		},
	}
	u := New(mock, testutil.NewMemFS(t, testFiles()), nil)

	err := u.Attempt(context.Background(), testRequest("http://backups.invalid/x"))

	var te *errors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Len(t, te.Body, maxErrorBody)
}

func TestUploader_Attempt_TransportFailure(t *testing.T) {
	mock := &testutil.MockDoer{
		DoFunc: func(*http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		},
	}
	fs := testutil.NewTrackingFS(testutil.NewMemFS(t, testFiles()))
	u := New(mock, fs, nil)

	err := u.Attempt(context.Background(), testRequest("http://backups.invalid/x"))
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 0, fs.OpenHandles())
}

func TestUploader_Attempt_RequestHeaders(t *testing.T) {
	mock := &testutil.MockDoer{
		DoFunc: func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
			}, nil
		},
	}
	u := New(mock, testutil.NewMemFS(t, testFiles()), nil)

	err := u.Attempt(context.Background(), testRequest("https://api.example.test/artifact-backups/wurst/7.0"))
	require.NoError(t, err)
	require.Len(t, mock.Requests, 1)

	req := mock.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.example.test/artifact-backups/wurst/7.0", req.URL.String())
	assert.Equal(t, "secret-key", req.Header.Get("X-API-Key"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Positive(t, req.ContentLength)
}

func TestUploader_Attempt_MissingFile(t *testing.T) {
	mock := &testutil.MockDoer{}
	fs := testutil.NewTrackingFS(testutil.NewMemFS(t, map[string]string{"/work/a.txt": "alpha"}))
	u := New(mock, fs, nil)

	err := u.Attempt(context.Background(), testRequest("http://backups.invalid/x"))
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Contains(t, err.Error(), "/work/b/c.txt")
	assert.Empty(t, mock.Requests)
	assert.Equal(t, 0, fs.OpenHandles())
}

func TestUploader_Attempt_CancelledContext(t *testing.T) {
	server := testutil.NewBackupServer(t)
	fs := testutil.NewTrackingFS(testutil.NewMemFS(t, testFiles()))
	u := New(server.Client(), fs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.Attempt(ctx, testRequest(server.URL+"/artifact-backups/wurst/7.0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, server.Requests())
	assert.Equal(t, 0, fs.OpenHandles())
}

func TestUploader_Attempt_NeverLogsAPIKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	server := testutil.NewBackupServer(t)
	u := New(server.Client(), testutil.NewMemFS(t, testFiles()), logger)

	require.NoError(t, u.Attempt(context.Background(), testRequest(server.URL+"/artifact-backups/wurst/7.0")))
	assert.Contains(t, buf.String(), "sending backup request")
	assert.NotContains(t, buf.String(), "secret-key")
}
