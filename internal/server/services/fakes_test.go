package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/notify"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
)

func testLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, slog.LevelDebug)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type tagResponse struct {
	tags map[string]string
	err  error
}

// fakeStore returns scripted tag responses, one per poll; once the script
// runs out every poll returns no tags.
type fakeStore struct {
	mu        sync.Mutex
	responses []tagResponse
	polls     int
	copyErr   error
	deleteErr error
	copies    [][4]string
	deletes   [][2]string
}

func (f *fakeStore) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.polls <= len(f.responses) {
		r := f.responses[f.polls-1]
		return r.tags, r.err
	}
	return map[string]string{}, nil
}

func (f *fakeStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, [4]string{srcBucket, srcKey, dstBucket, dstKey})
	return f.copyErr
}

func (f *fakeStore) Delete(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, [2]string{bucket, key})
	return f.deleteErr
}

func verdictOn(attempt int, value string) []tagResponse {
	out := make([]tagResponse, attempt)
	out[attempt-1] = tagResponse{tags: map[string]string{ScanStatusTag: value}}
	return out
}

// recordingRepo wraps a MemoryRepository, records status writes and can
// inject failures.
type recordingRepo struct {
	*files.MemoryRepository
	mu          sync.Mutex
	statuses    []models.UploadStatus
	statusErr   error
	locationErr error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{MemoryRepository: files.NewMemoryRepository()}
}

func (r *recordingRepo) UpdateStatus(ctx context.Context, fileID string, status models.UploadStatus, at time.Time) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	err := r.statusErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryRepository.UpdateStatus(ctx, fileID, status, at)
}

func (r *recordingRepo) UpdateLocation(ctx context.Context, fileID, bucket string, status models.UploadStatus, at time.Time) error {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	err := r.locationErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryRepository.UpdateLocation(ctx, fileID, bucket, status, at)
}

func (r *recordingRepo) writes() []models.UploadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.UploadStatus(nil), r.statuses...)
}

func seedRecord(repo files.Repository, id, bucket, key string) {
	_ = repo.Create(context.Background(), &models.FileRecord{
		FileID:           id,
		Filename:         key,
		Bucket:           bucket,
		FileSize:         10,
		FileType:         models.FileTypeFromKey(key),
		UploadedStatus:   models.StatusUploaded,
		CreatedTimestamp: fixedNow,
		UpdatedTimestamp: fixedNow,
	})
}

type fakeNotifier struct {
	msgs []notify.Message
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeSigner struct {
	req storage.UploadRequest
	err error
}

func (f *fakeSigner) PresignUpload(ctx context.Context, req storage.UploadRequest) (*storage.PresignedUpload, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PresignedUpload{
		URL:    "https://" + req.Bucket + ".s3.amazonaws.com/" + req.Key + "?X-Amz-Expires=3600",
		Method: "PUT",
		Headers: map[string][]string{
			"Content-Type":                 {req.ContentType},
			"X-Amz-Server-Side-Encryption": {"AES256"},
		},
	}, nil
}

// waitRecorder counts waits without sleeping.
type waitRecorder struct {
	calls []time.Duration
	err   error
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.calls = append(w.calls, d)
	return w.err
}
