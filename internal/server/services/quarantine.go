package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/notify"
	"github.com/dmitrijs2005/fileintake/internal/server/repositories/files"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
)

const threatSubject = "⚠️ Malware File Detected & Moved"

// QuarantineAction moves a malicious object into the quarantine bucket,
// records the new location and notifies operators.
type QuarantineAction struct {
	store         storage.ObjectStore
	repo          files.Repository
	status        *StatusUpdater
	notifier      notify.Notifier
	malwareBucket string
	now           func() time.Time
	logger        logging.Logger
}

func NewQuarantineAction(store storage.ObjectStore, repo files.Repository, status *StatusUpdater,
	n notify.Notifier, malwareBucket string, l logging.Logger) *QuarantineAction {
	return &QuarantineAction{
		store:         store,
		repo:          repo,
		status:        status,
		notifier:      n,
		malwareBucket: malwareBucket,
		now:           time.Now,
		logger:        l.With("module", "quarantine"),
	}
}

// Quarantine copies bucket/key into the quarantine bucket under the same key,
// deletes the source and records bucket and MOVED_TO_MALWARE_BUCKET together.
// If any of those steps fails the record is set to MOVE_FAILED; a partial
// copy or delete is not rolled back. Notification is best effort.
func (q *QuarantineAction) Quarantine(ctx context.Context, fileID, bucket, key string) models.UploadStatus {
	log := q.logger.With("fileId", fileID, "bucket", bucket, "key", key)

	// A first pass always finds THREATS_FOUND here. The guard covers direct
	// callers and re-driven records, whose THREATS_FOUND write the status
	// updater refuses once the record has moved.
	if rec, err := q.repo.GetByID(ctx, fileID); err == nil &&
		rec.UploadedStatus == models.StatusMovedToMalwareBucket && rec.Bucket == q.malwareBucket {
		log.Info(ctx, "file already quarantined")
		return models.StatusMovedToMalwareBucket
	}

	if err := q.move(ctx, fileID, bucket, key); err != nil {
		log.Error(ctx, "quarantine failed", "error", err)
		quarantineTotal.WithLabelValues("failed").Inc()
		if err := q.status.SetStatus(ctx, fileID, models.StatusMoveFailed); err != nil {
			log.Error(ctx, "status update failed", "status", models.StatusMoveFailed, "error", err)
		}
		return models.StatusMoveFailed
	}

	quarantineTotal.WithLabelValues("moved").Inc()
	log.Info(ctx, "file moved to quarantine", "destination", q.malwareBucket)

	if err := q.notifier.Send(ctx, q.threatMessage(fileID, bucket, key)); err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Warn(ctx, "threat notification failed", "error", err)
	} else {
		notificationsTotal.WithLabelValues("sent").Inc()
	}

	return models.StatusMovedToMalwareBucket
}

func (q *QuarantineAction) move(ctx context.Context, fileID, bucket, key string) error {
	if err := q.store.Copy(ctx, bucket, key, q.malwareBucket, key); err != nil {
		return err
	}
	if err := q.store.Delete(ctx, bucket, key); err != nil {
		return err
	}
	return q.status.SetLocation(ctx, fileID, q.malwareBucket, models.StatusMovedToMalwareBucket)
}

func (q *QuarantineAction) threatMessage(fileID, bucket, key string) notify.Message {
	return notify.Message{
		Subject: threatSubject,
		Text: fmt.Sprintf("A potentially malicious file has been detected and moved.\n\n"+
			"File ID: %s\nFile Name: %s\nOriginal Bucket: %s\nMalware Bucket: %s\nTime: %s\n",
			fileID, key, bucket, q.malwareBucket, q.now().UTC().Format(time.RFC3339)),
	}
}
