// Package cloud builds the AWS SDK clients used by the server from Config.
//
// Static credentials are used when S3RootUser is set (MinIO, LocalStack);
// otherwise the default credential chain applies. Base endpoint overrides
// let the same code run against S3-compatible backends.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sc "github.com/dmitrijs2005/fileintake/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newDynamoClientFromConfig = func(cfg aws.Config, optFns ...func(*dynamodb.Options)) *dynamodb.Client {
		return dynamodb.NewFromConfig(cfg, optFns...)
	}
)

// LoadAWSConfig resolves the shared aws.Config for all clients.
func LoadAWSConfig(ctx context.Context, c *sc.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.S3Region)}
	if c.S3RootUser != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3RootUser, c.S3RootPassword, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws config error: %w", err)
	}
	return cfg, nil
}

// NewS3Client returns an S3 client. A base endpoint switches to path-style
// addressing, which S3-compatible servers expect.
func NewS3Client(awsCfg aws.Config, c *sc.Config) *s3.Client {
	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})
}

// NewPresignClient wraps an S3 client for presigning.
func NewPresignClient(client *s3.Client) *s3.PresignClient {
	return s3.NewPresignClient(client)
}

// NewDynamoClient returns a DynamoDB client honoring DynamoDBEndpoint.
func NewDynamoClient(awsCfg aws.Config, c *sc.Config) *dynamodb.Client {
	return newDynamoClientFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(c.DynamoDBEndpoint)
		}
	})
}

// NewSESClient returns an SES v2 client.
func NewSESClient(awsCfg aws.Config) *sesv2.Client {
	return sesv2.NewFromConfig(awsCfg)
}
