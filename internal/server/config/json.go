package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/dmitrijs2005/fileintake/internal/flagx"
	"github.com/dmitrijs2005/fileintake/internal/timex"
)

// JsonConfig is the on-disk shape of the optional configuration file.
// Durations use timex.Duration so both "1s" and integer nanoseconds parse.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	HTTPAddr          string         `json:"http_addr"`
	MetadataBackend   string         `json:"metadata_backend"`
	DatabaseDSN       string         `json:"database_dsn"`
	TableName         string         `json:"dynamodb_table_name"`
	DynamoDBEndpoint  string         `json:"dynamodb_endpoint"`
	UploadBucket      string         `json:"upload_bucket_name"`
	MalwareBucket     string         `json:"malware_bucket_name"`
	AllowedExtensions []string       `json:"allowed_extensions"`
	MaxFileSizeMB     int64          `json:"max_file_size_mb"`
	SenderEmail       string         `json:"ses_sender_email"`
	RecipientEmail    string         `json:"ses_recipient_email"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	PollAttempts      int            `json:"poll_attempts"`
	PollInterval      timex.Duration `json:"poll_interval"`
	UploadURLTTL      timex.Duration `json:"upload_url_ttl"`
	LogLevel          string         `json:"log_level"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson loads configuration values from the file named by the -c/-config
// flag into config. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.MetadataBackend, c.MetadataBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.TableName, c.TableName)
	setString(&config.DynamoDBEndpoint, c.DynamoDBEndpoint)
	setString(&config.UploadBucket, c.UploadBucket)
	setString(&config.MalwareBucket, c.MalwareBucket)
	setString(&config.SenderEmail, c.SenderEmail)
	setString(&config.RecipientEmail, c.RecipientEmail)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.AllowedExtensions != nil {
		config.AllowedExtensions = ParseExtensions(strings.Join(c.AllowedExtensions, ","))
	}
	if c.MaxFileSizeMB > 0 {
		config.MaxFileSizeMB = c.MaxFileSizeMB
	}
	if c.PollAttempts > 0 {
		config.PollAttempts = c.PollAttempts
	}
	if c.PollInterval.Duration > 0 {
		config.PollInterval = c.PollInterval.Duration
	}
	if c.UploadURLTTL.Duration > 0 {
		config.UploadURLTTL = c.UploadURLTTL.Duration
	}
}
