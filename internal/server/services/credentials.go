package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
	"github.com/google/uuid"
)

const DefaultContentType = "application/octet-stream"

// ValidationError is a rejected upload request. Extension and Allowed are
// set when the extension check failed.
type ValidationError struct {
	Message   string
	Extension string
	Allowed   []string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// UploadURLRequest is the client's request for an upload credential.
type UploadURLRequest struct {
	Filename    string
	ContentType string
	Size        int64 // optional, zero when not declared
}

// UploadCredential is a presigned PUT bound to one generated key.
type UploadCredential struct {
	URL         string            `json:"url"`
	FileID      string            `json:"fileId"`
	Filename    string            `json:"filename"`
	S3Key       string            `json:"s3Key"`
	Bucket      string            `json:"bucket"`
	ContentType string            `json:"contentType"`
	ExpiresIn   int64             `json:"expiresIn"`
	Headers     map[string]string `json:"headers,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// CredentialService validates upload requests and issues presigned URLs.
type CredentialService struct {
	signer   storage.UploadSigner
	bucket   string
	allowed  []string
	maxBytes int64
	ttl      time.Duration
	newID    func() string
	now      func() time.Time
}

// NewCredentialService builds the issuer. An empty allowed list accepts any
// extension; maxBytes <= 0 disables the declared size check.
func NewCredentialService(signer storage.UploadSigner, bucket string, allowed []string, maxBytes int64, ttl time.Duration) *CredentialService {
	return &CredentialService{
		signer:   signer,
		bucket:   bucket,
		allowed:  allowed,
		maxBytes: maxBytes,
		ttl:      ttl,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// NormalizeExtension lower-cases the suffix of filename and strips
// parentheses, whitespace and the leading dot: "Photo.(JPG)" gives "jpg".
func NormalizeExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	ext = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ' ', '\t':
			return -1
		}
		return r
	}, ext)
	return strings.TrimPrefix(ext, ".")
}

func (s *CredentialService) extensionAllowed(ext string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for _, a := range s.allowed {
		if a == ext {
			return true
		}
	}
	return false
}

// Issue validates req and returns a credential for uploads/{fileId}_{filename}.
func (s *CredentialService) Issue(ctx context.Context, req UploadURLRequest) (*UploadCredential, error) {
	if req.Filename == "" {
		return nil, &ValidationError{Message: "filename parameter is required"}
	}

	ext := NormalizeExtension(req.Filename)
	if !s.extensionAllowed(ext) {
		shown := "." + ext
		if ext == "" {
			shown = "(none)"
		}
		return nil, &ValidationError{
			Message:   fmt.Sprintf("File extension %s not allowed. Allowed: %s", shown, strings.Join(s.allowed, ", ")),
			Extension: shown,
			Allowed:   s.allowed,
		}
	}

	if req.Size < 0 {
		return nil, &ValidationError{Message: "size must not be negative"}
	}
	if s.maxBytes > 0 && req.Size > s.maxBytes {
		return nil, &ValidationError{Message: fmt.Sprintf("file size %d exceeds limit of %d bytes", req.Size, s.maxBytes)}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	fileID := s.newID()
	key := fmt.Sprintf("uploads/%s_%s", fileID, req.Filename)

	signed, err := s.signer.PresignUpload(ctx, storage.UploadRequest{
		Bucket:        s.bucket,
		Key:           key,
		ContentType:   contentType,
		ContentLength: req.Size,
		TTL:           s.ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	headers := make(map[string]string, len(signed.Headers))
	for name := range signed.Headers {
		headers[name] = signed.Headers.Get(name)
	}

	return &UploadCredential{
		URL:         signed.URL,
		FileID:      fileID,
		Filename:    req.Filename,
		S3Key:       key,
		Bucket:      s.bucket,
		ContentType: contentType,
		ExpiresIn:   int64(s.ttl / time.Second),
		Headers:     headers,
		Timestamp:   s.now().UTC(),
	}, nil
}
