package files

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/dbx"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository stores file records in PostgreSQL. Mutations run in a
// transaction together with the matching file_status_history insert.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new record. A duplicate fileId yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, record *models.FileRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("metadata encode error: %w", err)
	}
	if record.Metadata == nil {
		metadata = []byte("{}")
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
		INSERT INTO files (file_id, filename, bucket, file_size, file_type, uploaded_status,
			created_at, updated_at, uploaded_by, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err := tx.ExecContext(ctx, query,
			record.FileID, record.Filename, record.Bucket, record.FileSize, record.FileType,
			string(record.UploadedStatus), record.CreatedTimestamp, record.UpdatedTimestamp,
			record.UploadedBy, metadata)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("file %s: %w", record.FileID, common.ErrorAlreadyExists)
			}
			return fmt.Errorf("db error: %w", err)
		}

		return insertHistory(ctx, tx, record.FileID, record.UploadedStatus, record.Bucket, record.UpdatedTimestamp)
	})
}

// GetByID returns the record for fileID or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, fileID string) (*models.FileRecord, error) {
	query := ` SELECT file_id, filename, bucket, file_size, file_type, uploaded_status,
		created_at, updated_at, uploaded_by, metadata from files
		WHERE file_id=$1
		`

	var (
		result   models.FileRecord
		status   string
		metadata []byte
	)
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&result.FileID, &result.Filename, &result.Bucket, &result.FileSize, &result.FileType, &status,
		&result.CreatedTimestamp, &result.UpdatedTimestamp, &result.UploadedBy, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	result.UploadedStatus = models.UploadStatus(status)

	if len(metadata) > 0 {
		dec := json.NewDecoder(bytes.NewReader(metadata))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("metadata decode error: %w", err)
		}
		if len(m) > 0 {
			result.Metadata = models.NormalizeNumbers(m).(map[string]any)
		}
	}

	return &result, nil
}

// UpdateStatus sets uploaded_status and updated_at.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, fileID string, status models.UploadStatus, at time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `update files set uploaded_status=$2, updated_at=$3 where file_id=$1`
		if err := execOne(ctx, tx, query, fileID, string(status), at); err != nil {
			return err
		}
		return insertHistory(ctx, tx, fileID, status, "", at)
	})
}

// UpdateLocation sets bucket, uploaded_status and updated_at in one statement.
func (r *PostgresRepository) UpdateLocation(ctx context.Context, fileID string, bucket string, status models.UploadStatus, at time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `update files set bucket=$2, uploaded_status=$3, updated_at=$4 where file_id=$1`
		if err := execOne(ctx, tx, query, fileID, bucket, string(status), at); err != nil {
			return err
		}
		return insertHistory(ctx, tx, fileID, status, bucket, at)
	})
}

// History returns the status transitions of fileID, oldest first.
func (r *PostgresRepository) History(ctx context.Context, fileID string) ([]models.StatusChange, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM files WHERE file_id=$1)`, fileID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check file: %w", err)
	}
	if !exists {
		return nil, common.ErrorNotFound
	}

	query := ` SELECT status, bucket, changed_at from file_status_history
		WHERE file_id=$1 ORDER BY id
		`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []models.StatusChange
	for rows.Next() {
		var (
			item   models.StatusChange
			status string
		)
		if err := rows.Scan(&status, &item.Bucket, &item.At); err != nil {
			return nil, err
		}
		item.Status = models.UploadStatus(status)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func execOne(ctx context.Context, tx dbx.DBTX, query string, args ...any) error {
	err := dbx.ExecOne(ctx, tx, query, args...)
	if errors.Is(err, dbx.ErrNoRowsAffected) {
		return common.ErrorNotFound
	}
	return err
}

func insertHistory(ctx context.Context, tx dbx.DBTX, fileID string, status models.UploadStatus, bucket string, at time.Time) error {
	query := `INSERT INTO file_status_history (file_id, status, bucket, changed_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, fileID, string(status), bucket, at); err != nil {
		return fmt.Errorf("history insert error: %w", err)
	}
	return nil
}
