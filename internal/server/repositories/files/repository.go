// Package files implements the metadata store for FileRecords.
//
// Three backends share the Repository contract: PostgreSQL (pgx + goose
// migrations), DynamoDB and an in-process map used for local runs and tests.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/server/models"
)

// Repository is the key-value capability over file records keyed by fileId.
//
// UpdateStatus and UpdateLocation are unconditional on the previous status
// (last writer wins) but fail with common.ErrorNotFound for an unknown id.
// Every mutation also appends an entry to the record's status history.
type Repository interface {
	Create(ctx context.Context, record *models.FileRecord) error
	GetByID(ctx context.Context, fileID string) (*models.FileRecord, error)
	UpdateStatus(ctx context.Context, fileID string, status models.UploadStatus, at time.Time) error
	UpdateLocation(ctx context.Context, fileID string, bucket string, status models.UploadStatus, at time.Time) error
	History(ctx context.Context, fileID string) ([]models.StatusChange, error)
}
