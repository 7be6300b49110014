package services

import (
	"context"

	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
)

// RecordService is the read-only view over stored file records.
type RecordService struct {
	repo files.Repository
}

func NewRecordService(repo files.Repository) *RecordService {
	return &RecordService{repo: repo}
}

// Get returns the record for fileID or an error wrapping common.ErrorNotFound.
// Numeric metadata is already normalized by the repositories.
func (s *RecordService) Get(ctx context.Context, fileID string) (*models.FileRecord, error) {
	return s.repo.GetByID(ctx, fileID)
}

// History returns the recorded status transitions of fileID, oldest first.
func (s *RecordService) History(ctx context.Context, fileID string) ([]models.StatusChange, error) {
	return s.repo.History(ctx, fileID)
}
