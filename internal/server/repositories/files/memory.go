package files

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
)

// MemoryRepository keeps records in process memory. It is used by the
// "memory" backend and by service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]models.FileRecord
	history map[string][]models.StatusChange
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]models.FileRecord),
		history: make(map[string][]models.StatusChange),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, record *models.FileRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.FileID]; ok {
		return fmt.Errorf("file %s: %w", record.FileID, common.ErrorAlreadyExists)
	}
	stored := *record
	stored.Metadata = maps.Clone(record.Metadata)
	r.records[record.FileID] = stored
	r.history[record.FileID] = []models.StatusChange{
		{Status: record.UploadedStatus, Bucket: record.Bucket, At: record.UpdatedTimestamp},
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, fileID string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[fileID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec.Metadata = maps.Clone(rec.Metadata)
	return &rec, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, fileID string, status models.UploadStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[fileID]
	if !ok {
		return common.ErrorNotFound
	}
	rec.UploadedStatus = status
	rec.UpdatedTimestamp = at
	r.records[fileID] = rec
	r.history[fileID] = append(r.history[fileID], models.StatusChange{Status: status, At: at})
	return nil
}

func (r *MemoryRepository) UpdateLocation(ctx context.Context, fileID string, bucket string, status models.UploadStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[fileID]
	if !ok {
		return common.ErrorNotFound
	}
	rec.Bucket = bucket
	rec.UploadedStatus = status
	rec.UpdatedTimestamp = at
	r.records[fileID] = rec
	r.history[fileID] = append(r.history[fileID], models.StatusChange{Status: status, Bucket: bucket, At: at})
	return nil
}

func (r *MemoryRepository) History(ctx context.Context, fileID string) ([]models.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.records[fileID]; !ok {
		return nil, common.ErrorNotFound
	}
	out := make([]models.StatusChange, len(r.history[fileID]))
	copy(out, r.history[fileID])
	return out, nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
