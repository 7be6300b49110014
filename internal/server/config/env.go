package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFile is loaded before reading the environment when present.
// Variables already set in the process environment take precedence.
var dotenvFile = ".env"

func lookupString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

// parseEnv overlays values from environment variables. A malformed numeric
// or duration value panics, as an invalid config file does.
func parseEnv(config *Config) {
	if _, err := os.Stat(dotenvFile); err == nil {
		if err := godotenv.Load(dotenvFile); err != nil {
			panic(fmt.Errorf("load %s: %w", dotenvFile, err))
		}
	}

	lookupString(&config.HTTPAddr, "HTTP_ADDR")
	lookupString(&config.MetadataBackend, "METADATA_BACKEND")
	lookupString(&config.DatabaseDSN, "DATABASE_DSN")
	lookupString(&config.TableName, "DYNAMODB_TABLE_NAME")
	lookupString(&config.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	lookupString(&config.UploadBucket, "UPLOAD_BUCKET_NAME")
	lookupString(&config.MalwareBucket, "MALWARE_BUCKET_NAME")
	lookupString(&config.SenderEmail, "SES_SENDER_EMAIL")
	lookupString(&config.RecipientEmail, "SES_RECIPIENT_EMAIL")
	lookupString(&config.S3RootUser, "S3_ROOT_USER")
	lookupString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	lookupString(&config.S3Region, "S3_REGION")
	lookupString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	lookupString(&config.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("ALLOWED_EXTENSIONS"); ok {
		config.AllowedExtensions = ParseExtensions(v)
	}

	if v, ok := os.LookupEnv("MAX_FILE_SIZE_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(fmt.Errorf("MAX_FILE_SIZE_MB: %w", err))
		}
		config.MaxFileSizeMB = n
	}

	if v, ok := os.LookupEnv("POLL_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("POLL_ATTEMPTS: %w", err))
		}
		config.PollAttempts = n
	}

	if v, ok := os.LookupEnv("POLL_INTERVAL"); ok && v != "" {
		config.PollInterval = mustDuration("POLL_INTERVAL", v)
	}
	if v, ok := os.LookupEnv("UPLOAD_URL_TTL"); ok && v != "" {
		config.UploadURLTTL = mustDuration("UPLOAD_URL_TTL", v)
	}
}

// mustDuration accepts a Go duration string or a bare number of seconds.
func mustDuration(name, v string) time.Duration {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", name, err))
	}
	return d
}
