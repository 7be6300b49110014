package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
)

// StorageEvent is an object-store event notification document. The shape
// follows the S3 event message format, which MinIO webhooks also emit.
type StorageEvent struct {
	Records []StorageEventRecord `json:"Records"`
}

// StorageEventRecord is a single notification inside a StorageEvent batch.
type StorageEventRecord struct {
	EventName string   `json:"eventName"`
	EventTime string   `json:"eventTime"`
	S3        S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ObjectCreated is a validated, decoded storage-creation notification.
type ObjectCreated struct {
	Bucket    string
	Key       string
	Size      int64
	EventTime time.Time
	EventName string
}

// ParseStorageEvent decodes a notification batch. Any decoding failure is a
// structural error and wraps common.ErrorMalformedEvent.
func ParseStorageEvent(b []byte) (*StorageEvent, error) {
	var ev StorageEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorMalformedEvent, err)
	}
	return &ev, nil
}

// ObjectCreated validates the record and decodes its object key. Keys in
// event notifications are URL-encoded, with '+' standing for a space.
func (r StorageEventRecord) ObjectCreated() (ObjectCreated, error) {
	if r.S3.Bucket.Name == "" {
		return ObjectCreated{}, fmt.Errorf("%w: missing bucket name", common.ErrorValidation)
	}
	if r.S3.Object.Key == "" {
		return ObjectCreated{}, fmt.Errorf("%w: missing object key", common.ErrorValidation)
	}

	key, err := url.QueryUnescape(r.S3.Object.Key)
	if err != nil {
		return ObjectCreated{}, fmt.Errorf("%w: bad object key %q: %v", common.ErrorValidation, r.S3.Object.Key, err)
	}

	at, err := time.Parse(time.RFC3339Nano, r.EventTime)
	if err != nil {
		return ObjectCreated{}, fmt.Errorf("%w: bad eventTime %q: %v", common.ErrorValidation, r.EventTime, err)
	}

	return ObjectCreated{
		Bucket:    r.S3.Bucket.Name,
		Key:       key,
		Size:      r.S3.Object.Size,
		EventTime: at.UTC(),
		EventName: r.EventName,
	}, nil
}

// FileTypeFromKey returns the lower-cased extension of key including the
// leading dot (".pdf"), or "unknown" when the key has none.
func FileTypeFromKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" || ext == "." {
		return "unknown"
	}
	return ext
}
