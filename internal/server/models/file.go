// Package models defines the server-side data model of the intake pipeline:
// the persisted FileRecord, its status state machine and the storage event
// payload that triggers intake.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
)

// UploadStatus is the lifecycle state of an uploaded file.
//
// Besides the enumerated values, any other non-empty string reported by the
// external scanner is stored verbatim and treated as terminal.
type UploadStatus string

const (
	StatusUploaded             UploadStatus = "UPLOADED"
	StatusScanning             UploadStatus = "SCANNING"
	StatusClean                UploadStatus = "CLEAN"
	StatusThreatsFound         UploadStatus = "THREATS_FOUND"
	StatusFailed               UploadStatus = "FAILED"
	StatusMovedToMalwareBucket UploadStatus = "MOVED_TO_MALWARE_BUCKET"
	StatusMoveFailed           UploadStatus = "MOVE_FAILED"
)

// validTransitions lists the allowed edges between enumerated statuses.
// Passthrough scanner values are handled in CanTransitionTo.
var validTransitions = map[UploadStatus]map[UploadStatus]bool{
	StatusUploaded: {
		StatusScanning:     true,
		StatusClean:        true,
		StatusThreatsFound: true,
		StatusFailed:       true,
	},
	StatusScanning: {
		StatusClean:        true,
		StatusThreatsFound: true,
		StatusFailed:       true,
	},
	StatusThreatsFound: {
		StatusMovedToMalwareBucket: true,
		StatusMoveFailed:           true,
	},
	StatusClean:                {},
	StatusFailed:               {},
	StatusMovedToMalwareBucket: {},
	StatusMoveFailed:           {},
}

// IsKnown reports whether s is one of the enumerated statuses.
func (s UploadStatus) IsKnown() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
// THREATS_FOUND is not terminal: it still has to be resolved by quarantine.
func (s UploadStatus) IsTerminal() bool {
	switch s {
	case StatusUploaded, StatusScanning, StatusThreatsFound:
		return false
	case "":
		return false
	default:
		return true
	}
}

// CanTransitionTo reports whether moving from s to next follows the state
// machine. An unrecognized scanner value may only be entered from UPLOADED
// or SCANNING.
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	if next == "" {
		return false
	}
	if !next.IsKnown() {
		return s == StatusUploaded || s == StatusScanning
	}
	return validTransitions[s][next]
}

// FileRecord is the metadata persisted for every stored object.
type FileRecord struct {
	FileID           string         `json:"fileId" dynamodbav:"fileId"`
	Filename         string         `json:"filename" dynamodbav:"filename"`
	Bucket           string         `json:"bucket" dynamodbav:"bucket"`
	FileSize         int64          `json:"fileSize" dynamodbav:"fileSize"`
	FileType         string         `json:"fileType" dynamodbav:"fileType"`
	UploadedStatus   UploadStatus   `json:"uploadedStatus" dynamodbav:"uploadedStatus"`
	CreatedTimestamp time.Time      `json:"createdTimestamp" dynamodbav:"createdTimestamp"`
	UpdatedTimestamp time.Time      `json:"updatedTimestamp" dynamodbav:"updatedTimestamp"`
	UploadedBy       string         `json:"uploadedBy,omitempty" dynamodbav:"uploadedBy,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// Validate checks the fixed-shape invariants enforced at the store boundary.
func (r *FileRecord) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", common.ErrorInvalidRecord)
	case r.FileID == "":
		return fmt.Errorf("%w: empty fileId", common.ErrorInvalidRecord)
	case r.Filename == "":
		return fmt.Errorf("%w: empty filename", common.ErrorInvalidRecord)
	case r.Bucket == "":
		return fmt.Errorf("%w: empty bucket", common.ErrorInvalidRecord)
	case r.FileSize < 0:
		return fmt.Errorf("%w: negative fileSize %d", common.ErrorInvalidRecord, r.FileSize)
	case r.UploadedStatus == "":
		return fmt.Errorf("%w: empty uploadedStatus", common.ErrorInvalidRecord)
	}
	return nil
}

// StatusChange is one entry of a file's transition history.
type StatusChange struct {
	Status UploadStatus `json:"status" dynamodbav:"status"`
	Bucket string       `json:"bucket,omitempty" dynamodbav:"bucket,omitempty"`
	At     time.Time    `json:"at" dynamodbav:"at"`
}
