package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
	"github.com/dmitrijs2005/fileintake/internal/server/services"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSigner struct{ err error }

func (s stubSigner) PresignUpload(ctx context.Context, req storage.UploadRequest) (*storage.PresignedUpload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &storage.PresignedUpload{URL: "https://s3.local/" + req.Key, Method: http.MethodPut}, nil
}

type stubIntake struct {
	ctxErr error
	res    *services.IntakeResult
	err    error
	body   []byte
}

func (s *stubIntake) HandleRaw(ctx context.Context, body []byte) (*services.IntakeResult, error) {
	s.body = body
	s.ctxErr = ctx.Err()
	return s.res, s.err
}

type brokenReader struct{}

func (brokenReader) Get(ctx context.Context, fileID string) (*models.FileRecord, error) {
	return nil, errors.New("connection reset")
}

func (brokenReader) History(ctx context.Context, fileID string) ([]models.StatusChange, error) {
	return nil, errors.New("connection reset")
}

type apiFixture struct {
	repo   *files.MemoryRepository
	intake *stubIntake
	router http.Handler
}

func newAPIFixture(t *testing.T, signer storage.UploadSigner) *apiFixture {
	t.Helper()
	l := logging.NewJSONLogger(io.Discard, slog.LevelDebug)
	repo := files.NewMemoryRepository()
	intake := &stubIntake{res: &services.IntakeResult{}}
	creds := services.NewCredentialService(signer, "uploads", []string{"jpg", "png"}, 1024, time.Hour)
	h := NewHandler(creds, services.NewRecordService(repo), intake, l)
	return &apiFixture{repo: repo, intake: intake, router: NewRouter(h, l)}
}

func (f *apiFixture) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestUploadURL_Accepts(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	rec := f.do(http.MethodGet, "/api/v1/upload-url?filename=photo.jpg&content_type=image/jpeg", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	fileID, _ := body["fileId"].(string)
	assert.NotEmpty(t, fileID)
	assert.Contains(t, body["s3Key"], fileID)
	assert.Equal(t, float64(3600), body["expiresIn"])
	assert.Equal(t, "image/jpeg", body["contentType"])
	assert.Equal(t, "uploads", body["bucket"])
	assert.NotEmpty(t, body["url"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestUploadURL_RejectsExtension(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	rec := f.do(http.MethodGet, "/api/v1/upload-url?filename=virus.exe", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	body := decode(t, rec)
	assert.Equal(t, ".exe", body["extension"])
	assert.Equal(t, []any{"jpg", "png"}, body["allowed"])
	assert.Contains(t, body["error"], ".exe")
	assert.Contains(t, body["error"], "jpg, png")
	assert.NotEmpty(t, body["timestamp"])
}

func TestUploadURL_MissingFilename(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	for _, target := range []string{
		"/api/v1/upload-url",
		"/api/v1/upload-url?content_type=image/png&size=10",
		"/api/v1/upload-url?filename=&size=abc",
	} {
		rec := f.do(http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "filename parameter is required", decode(t, rec)["error"])
	}
}

func TestUploadURL_Size(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	rec := f.do(http.MethodGet, "/api/v1/upload-url?filename=a.png&size=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/upload-url?filename=a.png&size=4096", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/upload-url?filename=a.png&size=512", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadURL_SignerFailure(t *testing.T) {
	f := newAPIFixture(t, stubSigner{err: errors.New("no credentials")})

	rec := f.do(http.MethodGet, "/api/v1/upload-url?filename=a.png", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestGetFile(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.Create(context.Background(), &models.FileRecord{
		FileID:           "f1",
		Filename:         "uploads/f1_a.jpg",
		Bucket:           "uploads",
		FileSize:         2048,
		FileType:         ".jpg",
		UploadedStatus:   models.StatusClean,
		CreatedTimestamp: at,
		UpdatedTimestamp: at,
		UploadedBy:       "s3_trigger",
		Metadata:         map[string]any{"retries": int64(3), "ratio": 0.5, "source": "s3_upload"},
	}))

	rec := f.do(http.MethodGet, "/api/v1/files/f1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	raw := rec.Body.String()
	assert.Contains(t, raw, `"fileSize":2048,`)
	assert.Contains(t, raw, `"retries":3`)
	assert.Contains(t, raw, `"ratio":0.5`)

	body := decode(t, rec)
	for _, k := range []string{"fileId", "filename", "bucket", "fileSize", "fileType", "uploadedStatus",
		"createdTimestamp", "updatedTimestamp", "uploadedBy", "metadata"} {
		assert.Contains(t, body, k)
	}
	assert.Equal(t, "CLEAN", body["uploadedStatus"])
}

func TestGetFile_NotFound(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	rec := f.do(http.MethodGet, "/api/v1/files/unknown", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	body := decode(t, rec)
	assert.Equal(t, "File not found", body["error"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestGetFile_StoreError(t *testing.T) {
	l := logging.NewJSONLogger(io.Discard, slog.LevelDebug)
	h := NewHandler(nil, brokenReader{}, &stubIntake{}, l)
	router := NewRouter(h, l)

	for _, target := range []string{"/api/v1/files/f1", "/api/v1/files/f1/history"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
	}
}

func TestGetFileHistory(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &models.FileRecord{
		FileID: "f1", Filename: "k.exe", Bucket: "uploads", UploadedStatus: models.StatusUploaded,
		CreatedTimestamp: at, UpdatedTimestamp: at,
	}))
	require.NoError(t, f.repo.UpdateStatus(ctx, "f1", models.StatusThreatsFound, at.Add(time.Second)))
	require.NoError(t, f.repo.UpdateLocation(ctx, "f1", "quarantine", models.StatusMovedToMalwareBucket, at.Add(2*time.Second)))

	rec := f.do(http.MethodGet, "/api/v1/files/f1/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "f1", body.FileID)
	require.Len(t, body.History, 3)
	assert.Equal(t, "quarantine", body.History[2].Bucket)

	rec = f.do(http.MethodGet, "/api/v1/files/nope/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageEvent(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	f.intake.res = &services.IntakeResult{Processed: 2, Failed: 1, FileIDs: []string{"a"}}

	rec := f.do(http.MethodPost, "/api/v1/events/s3", strings.NewReader(`{"Records":[]}`))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Successfully processed S3 upload event", body["message"])
	assert.Equal(t, float64(2), body["processed_files"])
	assert.Equal(t, float64(1), body["failed_files"])
	assert.Equal(t, `{"Records":[]}`, string(f.intake.body))
	assert.NoError(t, f.intake.ctxErr)
}

func TestStorageEvent_DetachedFromCancellation(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/s3", strings.NewReader(`{}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.NoError(t, f.intake.ctxErr)
}

func TestStorageEvent_Malformed(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	f.intake.err = common.ErrorMalformedEvent

	rec := f.do(http.MethodPost, "/api/v1/events/s3", strings.NewReader(`{"Records":`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "malformed storage event")
}

func TestStorageEvent_InternalError(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})
	f.intake.err = errors.New("boom")

	rec := f.do(http.MethodPost, "/api/v1/events/s3", strings.NewReader(`{}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_Misc(t *testing.T) {
	f := newAPIFixture(t, stubSigner{})

	rec := f.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodOptions, "/api/v1/upload-url", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(http.MethodDelete, "/api/v1/files/f1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
