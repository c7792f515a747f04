// Package app builds the configured handlers shared by the Lambda functions
// and the dev server.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/sirupsen/logrus"

	"telegram-phone-checker/internal/api"
	"telegram-phone-checker/internal/config"
	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/services"
	"telegram-phone-checker/internal/warmup"
)

// App holds the configuration and clients loaded once per process
type App struct {
	Config *config.Config
	Logger *logrus.Logger
	AWS    aws.Config
}

// New loads the configuration, the logger and the AWS configuration
func New(ctx context.Context, format logging.Format) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogLevel, format)

	awsCfg, err := services.LoadAWSConfig(ctx, cfg.AWSProfile)
	if err != nil {
		return nil, err
	}

	return &App{Config: cfg, Logger: logger, AWS: awsCfg}, nil
}

// Warmup returns the warmup handler for this function
func (a *App) Warmup() *warmup.Handler {
	if a.Config.FunctionName == "" {
		return warmup.NewHandler(nil, "", a.Logger)
	}
	return warmup.NewFromConfig(a.AWS, a.Config.FunctionName, a.Logger)
}

// CheckPhoneHandler serves /api/check-phone
func (a *App) CheckPhoneHandler() (api.Handler, error) {
	runner := &services.GotdSessionRunner{
		SessionPath: a.Config.TelegramSessionPath,
		Logger:      a.Logger,
	}
	return api.NewCheckPhoneHandler(services.NewTelegramService(runner), a.Logger), nil
}

// StatusHandler serves /api/get-status
func (a *App) StatusHandler() (api.Handler, error) {
	status, err := a.StatusService()
	if err != nil {
		return nil, err
	}
	return api.NewStatusHandler(status, a.Logger), nil
}

// LockHandler serves /api/lock-system and /api/unlock-system
func (a *App) LockHandler() (api.Handler, error) {
	status, err := a.StatusService()
	if err != nil {
		return nil, err
	}
	return api.NewLockHandler(status, a.Logger), nil
}

// SheetsHandler serves /api/write-sheets, archiving batches when ARCHIVE_BUCKET is set
func (a *App) SheetsHandler(ctx context.Context) (api.Handler, error) {
	credentials, err := a.Config.GoogleCredentialsJSON()
	if err != nil {
		return nil, err
	}

	writer, err := services.NewSheetsService(ctx, credentials)
	if err != nil {
		return nil, err
	}

	handlerCfg := api.SheetsHandlerConfig{
		Writer:   writer,
		Location: a.Config.Location,
		Logger:   a.Logger,
	}
	if a.Config.ArchiveEnabled() {
		handlerCfg.Archiver = services.NewS3ClientFromConfig(a.AWS, a.Config.ArchiveBucket)
	}

	return api.NewSheetsHandler(handlerCfg), nil
}

// StatusService returns the lock and usage service backed by KV_TABLE
func (a *App) StatusService() (*services.StatusService, error) {
	if err := a.Config.Require(config.EnvKVTable); err != nil {
		return nil, fmt.Errorf("key-value store: %w", err)
	}

	store := services.NewDynamoDBServiceFromConfig(a.AWS, a.Config.KVTable)
	return services.NewStatusService(store, services.StatusConfig{
		DailyLimit: a.Config.DailyLimit,
		LockTTL:    a.Config.LockTTL,
		Location:   a.Config.Location,
	}), nil
}
