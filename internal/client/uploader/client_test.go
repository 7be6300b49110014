package uploader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PutFile(t *testing.T) {
	var uploaded []byte
	var uploadedType string

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "AES256", r.Header.Get("x-amz-server-side-encryption"))
		uploadedType = r.Header.Get("Content-Type")
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/upload-url", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "report.pdf", q.Get("filename"))
		assert.Equal(t, "application/pdf", q.Get("content_type"))
		assert.Equal(t, "5", q.Get("size"))

		_ = json.NewEncoder(w).Encode(Credential{
			URL:         storage.URL + "/uploads/uploads/id-1_report.pdf",
			FileID:      "id-1",
			Filename:    "report.pdf",
			ContentType: "application/pdf",
			Headers: map[string]string{
				"Content-Type":                 "application/pdf",
				"Content-Length":               "5",
				"x-amz-server-side-encryption": "AES256",
			},
		})
	}))
	defer api.Close()

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-"), 0o600))

	c := NewClient(api.URL+"/", nil)
	cred, err := c.PutFile(context.Background(), path, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "id-1", cred.FileID)
	assert.Equal(t, []byte("%PDF-"), uploaded)
	assert.Equal(t, "application/pdf", uploadedType)
}

func TestClient_RequestUpload_APIError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"File extension exe not allowed. Allowed: pdf"}`))
	}))
	defer api.Close()

	_, err := NewClient(api.URL, nil).RequestUpload(context.Background(), "x.exe", "", 0)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "not allowed")
}

func TestClient_GetFile_NotFound(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"File not found"}`))
	}))
	defer api.Close()

	_, err := NewClient(api.URL, nil).GetFile(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestClient_WaitForFile(t *testing.T) {
	var calls atomic.Int32

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/files/id-1", r.URL.Path)

		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"File not found"}`))
		case 2:
			_ = json.NewEncoder(w).Encode(models.FileRecord{FileID: "id-1", UploadedStatus: models.StatusScanning})
		default:
			_ = json.NewEncoder(w).Encode(models.FileRecord{FileID: "id-1", UploadedStatus: models.StatusClean})
		}
	}))
	defer api.Close()

	rec, err := NewClient(api.URL, nil).WaitForFile(context.Background(), "id-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClean, rec.UploadedStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_WaitForFile_ContextDone(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.FileRecord{FileID: "id-1", UploadedStatus: models.StatusScanning})
	}))
	defer api.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(api.URL, nil).WaitForFile(ctx, "id-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
