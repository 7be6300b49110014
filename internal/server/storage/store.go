// Package storage is the object store capability: reading scan tags,
// relocating objects and issuing presigned upload URLs.
package storage

import (
	"context"
	"net/http"
	"time"
)

// ObjectStore is consumed by the scan reconciler and the quarantine action.
type ObjectStore interface {
	GetTags(ctx context.Context, bucket, key string) (map[string]string, error)
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
}

// UploadRequest describes the single object a presigned URL may write.
type UploadRequest struct {
	Bucket        string
	Key           string
	ContentType   string
	ContentLength int64 // zero leaves the length unbound
	TTL           time.Duration
}

// PresignedUpload is a time-boxed PUT credential. Headers lists every
// signed header the client must send with the upload.
type PresignedUpload struct {
	URL     string
	Method  string
	Headers http.Header
}

// UploadSigner issues presigned upload URLs.
type UploadSigner interface {
	PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error)
}
