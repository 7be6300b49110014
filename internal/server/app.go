// Package server initializes and runs the file intake server. It selects the
// metadata store backend, builds the AWS clients, wires the intake pipeline
// and serves the HTTP API until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/fileintake/internal/logging"
	"github.com/dmitrijs2005/fileintake/internal/server/cloud"
	"github.com/dmitrijs2005/fileintake/internal/server/config"
	"github.com/dmitrijs2005/fileintake/internal/server/httpapi"
	"github.com/dmitrijs2005/fileintake/internal/server/notify"
	"github.com/dmitrijs2005/fileintake/internal/server/services"
	"github.com/dmitrijs2005/fileintake/internal/server/shared/db"
	"github.com/dmitrijs2005/fileintake/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  db.RepositoryManager
	server *httpapi.Server
}

func newRepositoryManager(ctx context.Context, c *config.Config, awsCfg aws.Config) (db.RepositoryManager, error) {
	switch c.MetadataBackend {
	case config.BackendPostgres:
		return db.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	case config.BackendDynamoDB:
		return db.NewDynamoRepositoryManager(cloud.NewDynamoClient(awsCfg, c), c.TableName), nil
	case config.BackendMemory:
		return db.NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}
}

func newNotifier(ctx context.Context, c *config.Config, awsCfg aws.Config, l logging.Logger) notify.Notifier {
	if c.SenderEmail == "" || c.RecipientEmail == "" {
		l.Warn(ctx, "SES sender or recipient not configured, threat notifications disabled")
		return notify.NopNotifier{}
	}
	return notify.NewSESNotifier(cloud.NewSESClient(awsCfg), c.SenderEmail, c.RecipientEmail)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	awsCfg, err := cloud.LoadAWSConfig(ctx, c)
	if err != nil {
		return nil, err
	}

	repos, err := newRepositoryManager(ctx, c, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	fileRepo := repos.Files()

	s3Client := cloud.NewS3Client(awsCfg, c)
	store := storage.NewS3Store(s3Client, cloud.NewPresignClient(s3Client))

	status := services.NewStatusUpdater(fileRepo, nil)
	quarantine := services.NewQuarantineAction(store, fileRepo, status, newNotifier(ctx, c, awsCfg, logger), c.MalwareBucket, logger)
	reconciler := services.NewReconciler(store, status, quarantine, logger,
		services.WithPollBudget(c.PollAttempts, c.PollInterval))
	intake := services.NewIntakeService(fileRepo, reconciler, logger)
	credentials := services.NewCredentialService(store, c.UploadBucket, c.AllowedExtensions, c.MaxFileSizeBytes(), c.UploadURLTTL)

	handler := httpapi.NewHandler(credentials, services.NewRecordService(fileRepo), intake, logger)
	server := httpapi.NewServer(c.HTTPAddr, httpapi.NewRouter(handler, logger), logger)

	return &App{config: c, logger: logger, repos: repos, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the metadata store.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.MetadataBackend)

	app.initSignalHandler(cancelFunc)

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "http server error", "error", runErr)
	}

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return runErr
}
