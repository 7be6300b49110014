package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/models"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
)

// ScanStatusTag is the object tag the malware scanner writes its verdict to.
const ScanStatusTag = "GuardDutyMalwareScanStatus"

const (
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
)

// Quarantiner relocates a malicious object and returns the resulting status.
type Quarantiner interface {
	Quarantine(ctx context.Context, fileID, bucket, key string) models.UploadStatus
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reconciler polls an object's tags for the scanner verdict and drives the
// file record to a terminal status.
type Reconciler struct {
	store      storage.ObjectStore
	status     *StatusUpdater
	quarantine Quarantiner
	attempts   int
	interval   time.Duration
	wait       WaitFunc
	logger     logging.Logger
}

type ReconcilerOption func(*Reconciler)

// WithPollBudget overrides the number of polls and the delay between them.
// Non-positive values keep the defaults.
func WithPollBudget(attempts int, interval time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithWait replaces the delay between polls, letting tests run without
// wall-clock sleeps.
func WithWait(w WaitFunc) ReconcilerOption {
	return func(r *Reconciler) {
		r.wait = w
	}
}

func NewReconciler(store storage.ObjectStore, status *StatusUpdater, q Quarantiner, l logging.Logger, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:      store,
		status:     status,
		quarantine: q,
		attempts:   DefaultPollAttempts,
		interval:   DefaultPollInterval,
		wait:       sleepContext,
		logger:     l.With("module", "reconciler"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile polls bucket/key up to the configured number of attempts and
// returns the final status written for fileID.
//
// The first poll without a verdict moves the record to SCANNING; later empty
// polls do not write again. A tag fetch error counts as an empty poll. When
// no verdict arrives within the budget the record ends as FAILED.
func (r *Reconciler) Reconcile(ctx context.Context, fileID, bucket, key string) models.UploadStatus {
	log := r.logger.With("fileId", fileID, "bucket", bucket, "key", key)
	scanning := false
	polls := 0

	for attempt := 1; attempt <= r.attempts; attempt++ {
		polls++
		verdict, err := r.poll(ctx, bucket, key)
		if err != nil {
			log.Warn(ctx, "tag poll failed", "attempt", attempt, "error", err)
		}

		if verdict != "" {
			log.Info(ctx, "scan verdict found", "attempt", attempt, "verdict", verdict)
			scanPollAttempts.Observe(float64(attempt))
			final := r.resolve(ctx, log, fileID, bucket, key, models.UploadStatus(verdict))
			scanOutcomes.WithLabelValues(scanOutcomeLabel(string(final))).Inc()
			return final
		}

		log.Debug(ctx, "no scan verdict yet", "attempt", attempt)
		if !scanning {
			r.write(ctx, log, fileID, models.StatusScanning)
			scanning = true
		}

		if attempt < r.attempts {
			if err := r.wait(ctx, r.interval); err != nil {
				log.Warn(ctx, "polling interrupted", "attempt", attempt, "error", err)
				break
			}
		}
	}

	scanPollAttempts.Observe(float64(polls))
	log.Warn(ctx, "no scan verdict within poll budget", "attempts", polls)
	r.write(ctx, log, fileID, models.StatusFailed)
	scanOutcomes.WithLabelValues(string(models.StatusFailed)).Inc()
	return models.StatusFailed
}

func (r *Reconciler) poll(ctx context.Context, bucket, key string) (string, error) {
	tags, err := r.store.GetTags(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	return tags[ScanStatusTag], nil
}

// resolve writes the verdict and, for THREATS_FOUND, runs the quarantine.
// Any verdict other than CLEAN or THREATS_FOUND is stored verbatim.
func (r *Reconciler) resolve(ctx context.Context, log logging.Logger, fileID, bucket, key string,
	verdict models.UploadStatus) models.UploadStatus {

	r.write(ctx, log, fileID, verdict)
	if verdict != models.StatusThreatsFound {
		return verdict
	}
	return r.quarantine.Quarantine(ctx, fileID, bucket, key)
}

// write logs and swallows store failures; the pipeline degrades rather
// than aborting on a failed status write.
func (r *Reconciler) write(ctx context.Context, log logging.Logger, fileID string, status models.UploadStatus) {
	if err := r.status.SetStatus(ctx, fileID, status); err != nil {
		log.Error(ctx, "status update failed", "status", status, "error", err)
	}
}
