package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
)

// StatusUpdater is the single write path for status and location changes.
// A write is refused with common.ErrorInvalidTransition unless the stored
// status may move to the new one; every accepted write stamps
// updatedTimestamp with its own clock reading.
//
// The check reads the record before writing, so it assumes one writer per
// record. The pipeline has that: each record is driven by the single
// reconciler that created it.
type StatusUpdater struct {
	repo files.Repository
	now  func() time.Time
}

func NewStatusUpdater(repo files.Repository, now func() time.Time) *StatusUpdater {
	if now == nil {
		now = time.Now
	}
	return &StatusUpdater{repo: repo, now: now}
}

// SetStatus writes uploadedStatus for fileID.
func (u *StatusUpdater) SetStatus(ctx context.Context, fileID string, status models.UploadStatus) error {
	if err := u.checkTransition(ctx, fileID, status); err != nil {
		return fmt.Errorf("set status %s for %s: %w", status, fileID, err)
	}
	if err := u.repo.UpdateStatus(ctx, fileID, status, u.now().UTC()); err != nil {
		return fmt.Errorf("set status %s for %s: %w", status, fileID, err)
	}
	return nil
}

// SetLocation writes bucket and uploadedStatus for fileID in one update.
func (u *StatusUpdater) SetLocation(ctx context.Context, fileID, bucket string, status models.UploadStatus) error {
	if err := u.checkTransition(ctx, fileID, status); err != nil {
		return fmt.Errorf("set location %s/%s for %s: %w", bucket, status, fileID, err)
	}
	if err := u.repo.UpdateLocation(ctx, fileID, bucket, status, u.now().UTC()); err != nil {
		return fmt.Errorf("set location %s/%s for %s: %w", bucket, status, fileID, err)
	}
	return nil
}

func (u *StatusUpdater) checkTransition(ctx context.Context, fileID string, next models.UploadStatus) error {
	rec, err := u.repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if !rec.UploadedStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", common.ErrorInvalidTransition, rec.UploadedStatus, next)
	}
	return nil
}
