package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/contacts-service/internal/config"
	"github.com/prperemyshlev/contacts-service/internal/mail"
	"github.com/prperemyshlev/contacts-service/internal/service"
	"github.com/prperemyshlev/contacts-service/internal/upload"
	"github.com/prperemyshlev/contacts-service/pkg/database"
	"github.com/prperemyshlev/contacts-service/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "contacts-service"

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider
	Mailer() service.EmailSender
	Uploader() service.AvatarUploader

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
	mailer         service.EmailSender
	uploader       service.AvatarUploader
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN(), database.PoolOptions{
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if cfg.Postgres.Migrate {
		version, err := database.Migrate(cfg.Postgres.DSN())
		if err != nil {
			_ = i.postgres.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database schema is up to date", zap.Uint("version", version))
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	if cfg.MailEnabled() {
		i.mailer = mail.NewMailgunSender(mail.Config{
			Domain:      cfg.Mail.Domain,
			APIKey:      cfg.Mail.APIKey,
			APIBase:     cfg.Mail.APIBase,
			From:        cfg.Mail.From,
			FromName:    cfg.Mail.FromName,
			ProductName: cfg.Mail.ProductName,
			ProductLink: cfg.Mail.ProductLink,
		}, logger)
	} else {
		logger.Info("Mail delivery disabled, confirmation emails are only logged")
		i.mailer = mail.NewLogSender(logger)
	}

	uploader, err := upload.NewCloudinaryUploader(upload.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		Folder:    cfg.Cloudinary.Folder,
	})
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		_ = meterProvider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize avatar uploads: %w", err)
	}
	i.uploader = uploader

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Mailer() service.EmailSender {
	return i.mailer
}

func (i *infrastructure) Uploader() service.AvatarUploader {
	return i.uploader
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	err := errors.Join(<-errs, <-errs, <-errs)
	// Sync fails on stdout/stderr on some platforms
	_ = i.logger.Sync()
	return err
}
