package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/fileintake/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-m string    metadata backend: postgres, dynamodb or memory
//	-d string    PostgreSQL DSN
//	-t string    DynamoDB table name
//	-b string    upload bucket
//	-q string    quarantine bucket
//	-x string    allowed extensions, comma separated
//	-s int       max file size, MB
//	-n int       scan status poll attempts
//	-i duration  scan status poll interval
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string    S3 root user
//	-p string    S3 root password
//	-l string    log level
//
// Only flags defined here are parsed, so the config file flag does not collide.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TableName, "t", config.TableName, "DynamoDB table name")
	fs.StringVar(&config.UploadBucket, "b", config.UploadBucket, "upload bucket")
	fs.StringVar(&config.MalwareBucket, "q", config.MalwareBucket, "quarantine bucket")
	extensions := fs.String("x", strings.Join(config.AllowedExtensions, ","), "allowed extensions")
	fs.Int64Var(&config.MaxFileSizeMB, "s", config.MaxFileSizeMB, "max file size (in MB)")
	fs.IntVar(&config.PollAttempts, "n", config.PollAttempts, "scan status poll attempts")
	fs.DurationVar(&config.PollInterval, "i", config.PollInterval, "scan status poll interval")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	config.AllowedExtensions = ParseExtensions(*extensions)
}
