package services

import (
	"context"

	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
	"github.com/google/uuid"
)

const (
	uploadedBy     = "s3_trigger"
	metadataSource = "s3_upload"
)

// ScanReconciler is satisfied by *Reconciler.
type ScanReconciler interface {
	Reconcile(ctx context.Context, fileID, bucket, key string) models.UploadStatus
}

// IntakeResult summarizes one notification batch.
type IntakeResult struct {
	Processed int // every notification in the batch
	Failed    int // notifications that were not recorded, counted in Processed too
	FileIDs   []string
}

// IntakeService records newly stored objects and reconciles their scan status.
type IntakeService struct {
	repo       files.Repository
	reconciler ScanReconciler
	newID      func() string
	logger     logging.Logger
}

func NewIntakeService(repo files.Repository, r ScanReconciler, l logging.Logger) *IntakeService {
	return &IntakeService{
		repo:       repo,
		reconciler: r,
		newID:      uuid.NewString,
		logger:     l.With("module", "intake"),
	}
}

// HandleRaw decodes a notification batch and processes it. A payload that
// cannot be decoded fails with common.ErrorMalformedEvent.
func (s *IntakeService) HandleRaw(ctx context.Context, body []byte) (*IntakeResult, error) {
	ev, err := models.ParseStorageEvent(body)
	if err != nil {
		return nil, err
	}
	return s.Handle(ctx, ev), nil
}

// Handle processes every record of ev in order. A failure on one record is
// logged and does not stop the rest of the batch.
func (s *IntakeService) Handle(ctx context.Context, ev *models.StorageEvent) *IntakeResult {
	res := &IntakeResult{}
	for i, rec := range ev.Records {
		// Processed counts every notification in the batch, failed ones
		// included; Failed is the subset that could not be handled.
		res.Processed++
		id, err := s.handleOne(ctx, rec)
		if err != nil {
			res.Failed++
			s.logger.Error(ctx, "intake record failed", "index", i,
				"bucket", rec.S3.Bucket.Name, "key", rec.S3.Object.Key, "error", err)
			continue
		}
		res.FileIDs = append(res.FileIDs, id)
	}
	return res
}

func (s *IntakeService) handleOne(ctx context.Context, rec models.StorageEventRecord) (string, error) {
	obj, err := rec.ObjectCreated()
	if err != nil {
		return "", err
	}

	record := newFileRecord(s.newID(), obj)
	if err := s.repo.Create(ctx, record); err != nil {
		return "", err
	}
	s.logger.Info(ctx, "file record created", "fileId", record.FileID, "bucket", obj.Bucket, "key", obj.Key)

	final := s.reconciler.Reconcile(ctx, record.FileID, obj.Bucket, obj.Key)
	s.logger.Info(ctx, "file reconciled", "fileId", record.FileID, "status", final)
	return record.FileID, nil
}

func newFileRecord(id string, obj models.ObjectCreated) *models.FileRecord {
	return &models.FileRecord{
		FileID:           id,
		Filename:         obj.Key,
		Bucket:           obj.Bucket,
		FileSize:         obj.Size,
		FileType:         models.FileTypeFromKey(obj.Key),
		UploadedStatus:   models.StatusUploaded,
		CreatedTimestamp: obj.EventTime,
		UpdatedTimestamp: obj.EventTime,
		UploadedBy:       uploadedBy,
		Metadata: map[string]any{
			"source":     metadataSource,
			"event_type": obj.EventName,
		},
	}
}
