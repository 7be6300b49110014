package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredentialFixture(allowed []string, maxBytes int64) (*CredentialService, *fakeSigner) {
	signer := &fakeSigner{}
	svc := NewCredentialService(signer, "uploads", allowed, maxBytes, time.Hour)
	svc.newID = func() string { return "0b6f1c2e-1111-2222-3333-444455556666" }
	svc.now = clock
	return svc, signer
}

func TestIssue_RejectsDisallowedExtension(t *testing.T) {
	svc, signer := newCredentialFixture([]string{"jpg", "png"}, 0)

	_, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "virus.exe"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Equal(t, ".exe", ve.Extension)
	assert.Equal(t, []string{"jpg", "png"}, ve.Allowed)
	assert.Contains(t, ve.Message, ".exe")
	assert.Contains(t, ve.Message, "jpg, png")
	assert.Empty(t, signer.req.Key, "no credential generated")
}

func TestIssue_AcceptsAllowedExtension(t *testing.T) {
	svc, signer := newCredentialFixture([]string{"jpg", "png"}, 0)

	cred, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "photo.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)

	assert.Equal(t, "0b6f1c2e-1111-2222-3333-444455556666", cred.FileID)
	assert.Equal(t, "uploads/0b6f1c2e-1111-2222-3333-444455556666_photo.jpg", cred.S3Key)
	assert.Contains(t, cred.S3Key, cred.FileID)
	assert.Equal(t, int64(3600), cred.ExpiresIn)
	assert.Equal(t, "uploads", cred.Bucket)
	assert.Equal(t, "photo.jpg", cred.Filename)
	assert.Equal(t, "image/jpeg", cred.ContentType)
	assert.Equal(t, fixedNow, cred.Timestamp)
	assert.Contains(t, cred.URL, cred.S3Key)
	assert.Equal(t, "AES256", cred.Headers["X-Amz-Server-Side-Encryption"])

	assert.Equal(t, cred.S3Key, signer.req.Key)
	assert.Equal(t, time.Hour, signer.req.TTL)
	assert.Equal(t, int64(0), signer.req.ContentLength)
}

func TestIssue_ExtensionCheckIsCaseAndParenthesisInsensitive(t *testing.T) {
	svc, _ := newCredentialFixture([]string{"jpg"}, 0)

	for _, name := range []string{"PHOTO.JPG", "scan.(jpg)", "x.( JPG )"} {
		_, err := svc.Issue(context.Background(), UploadURLRequest{Filename: name})
		assert.NoError(t, err, name)
	}
}

func TestIssue_MissingFilename(t *testing.T) {
	svc, _ := newCredentialFixture([]string{"jpg"}, 0)

	_, err := svc.Issue(context.Background(), UploadURLRequest{ContentType: "image/jpeg", Size: 10})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "filename parameter is required", ve.Message)
}

func TestIssue_NoExtension(t *testing.T) {
	svc, _ := newCredentialFixture([]string{"jpg"}, 0)

	_, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "README"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "(none)", ve.Extension)
}

func TestIssue_EmptyAllowListAcceptsAnything(t *testing.T) {
	svc, signer := newCredentialFixture(nil, 0)

	cred, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "tool.exe"})
	require.NoError(t, err)
	assert.Equal(t, DefaultContentType, cred.ContentType)
	assert.Equal(t, DefaultContentType, signer.req.ContentType)
}

func TestIssue_DeclaredSize(t *testing.T) {
	svc, signer := newCredentialFixture([]string{"pdf"}, 1024)

	_, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "a.pdf", Size: 2048})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.Issue(context.Background(), UploadURLRequest{Filename: "a.pdf", Size: -1})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.Issue(context.Background(), UploadURLRequest{Filename: "a.pdf", Size: 512})
	require.NoError(t, err)
	assert.Equal(t, int64(512), signer.req.ContentLength)
}

func TestIssue_SignerError(t *testing.T) {
	svc, signer := newCredentialFixture(nil, 0)
	signer.err = errors.New("expired credentials")

	_, err := svc.Issue(context.Background(), UploadURLRequest{Filename: "a.jpg"})

	assert.ErrorIs(t, err, common.ErrorInternal)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"a.JPG":       "jpg",
		"a.(png)":     "png",
		"archive.tar": "tar",
		"noext":       "",
		"dir.v2/file": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeExtension(in), in)
	}
}
