package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObjectTagging(ctx context.Context, in *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PresignAPI is the subset of s3.PresignClient used by S3Store.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements ObjectStore and UploadSigner on top of S3.
type S3Store struct {
	client    S3API
	presigner PresignAPI
}

func NewS3Store(client S3API, presigner PresignAPI) *S3Store {
	return &S3Store{client: client, presigner: presigner}
}

// GetTags returns the object's tag set as a map.
func (s *S3Store) GetTags(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get tags %s/%s: %w", bucket, key, err)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, nil
}

// Copy copies srcBucket/srcKey to dstBucket/dstKey.
func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		CopySource: aws.String(copySource(srcBucket, srcKey)),
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("copy %s/%s to %s: %w", srcBucket, srcKey, dstBucket, err)
	}
	return nil
}

// Delete removes bucket/key.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PresignUpload signs a PUT for exactly req.Key with AES256 server-side
// encryption and the declared content type.
func (s *S3Store) PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	in := &s3.PutObjectInput{
		Bucket:               aws.String(req.Bucket),
		Key:                  aws.String(req.Key),
		ContentType:          aws.String(req.ContentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	if req.ContentLength > 0 {
		in.ContentLength = aws.Int64(req.ContentLength)
	}

	signed, err := s.presigner.PresignPutObject(ctx, in, s3.WithPresignExpires(req.TTL))
	if err != nil {
		return nil, fmt.Errorf("presign %s/%s: %w", req.Bucket, req.Key, err)
	}

	headers := signed.SignedHeader.Clone()
	headers.Del("Host")
	return &PresignedUpload{URL: signed.URL, Method: signed.Method, Headers: headers}, nil
}

// copySource formats "bucket/key" with each key segment URL-encoded.
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}
