package main

import (
	"context"
	"fmt"

	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/internal/infrastructure/config"
	"schedule-monitor/internal/infrastructure/lock"
	"schedule-monitor/internal/infrastructure/oauth"
	"schedule-monitor/internal/infrastructure/persistence"
	"schedule-monitor/internal/interface/mailer"
	repo "schedule-monitor/internal/interface/repository"
	"schedule-monitor/internal/usecase"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"
	"schedule-monitor/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const metricsNamespace = "schedule_monitor"

// App owns the wired dependencies of one command invocation
type App struct {
	cfg          *config.Config
	log          logger.Logger
	metrics      *metrics.Metrics
	scheduleRepo repository.ScheduleRepository
	redisClient  *redis.Client
}

// NewApp connects to the configured store and applies pending SQL migrations
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	scheduleRepo, err := newScheduleRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:          cfg,
		log:          log,
		metrics:      metrics.NewMetrics(metricsNamespace),
		scheduleRepo: scheduleRepo,
	}, nil
}

func newScheduleRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.ScheduleRepository, error) {
	if cfg.DBDriver == persistence.DriverMongo {
		log.Info("Connecting to MongoDB", "database", cfg.MongoDB)
		client, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return repo.NewMongoScheduleRepository(client, client.Database(cfg.MongoDB)), nil
	}

	log.Info("Opening database", "driver", cfg.DBDriver)
	db, err := persistence.NewGormDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	migrator, err := persistence.NewMigrator(db, cfg.DBDriver, log)
	if err != nil {
		return nil, err
	}
	if err := migrator.Run(ctx); err != nil {
		return nil, err
	}

	return repo.NewGormScheduleRepository(db), nil
}

func (a *App) dateLocker(ctx context.Context) (repository.DateLocker, error) {
	if a.cfg.RedisAddr == "" {
		return lock.NewLocalDateLocker(), nil
	}

	client, err := lock.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	a.redisClient = client
	return lock.NewRedisDateLocker(client, a.cfg.LockTTL, a.log), nil
}

func (a *App) mailRepository(ctx context.Context) repository.MailRepository {
	if a.cfg.MailTransport == config.TransportGmail {
		gmailOAuth := oauth.NewGmailOAuth(
			a.cfg.GmailClientID,
			a.cfg.GmailClientSecret,
			a.cfg.GmailRefreshToken,
			"",
			a.log,
		)
		return mailer.NewGmailMailRepository(mailer.GmailCredentials{
			ClientID:     a.cfg.GmailClientID,
			ClientSecret: a.cfg.GmailClientSecret,
			RefreshToken: a.cfg.GmailRefreshToken,
		}, gmailOAuth.GetTokenSource(ctx), a.log)
	}

	return mailer.NewSMTPMailRepository(mailer.SMTPSettings{
		Host:     a.cfg.EmailHost,
		Port:     a.cfg.EmailPort,
		Login:    a.cfg.EmailLogin,
		Password: a.cfg.EmailPassword,
	}, a.log)
}

// CancellationJob wires the full check
func (a *App) CancellationJob(ctx context.Context, dryRun bool) (*usecase.CancellationJob, error) {
	pageRepo, err := repo.NewHTTPSchedulePageRepository(a.cfg.ScheduleURL, a.cfg.FetchTimeout, a.log)
	if err != nil {
		return nil, err
	}

	locker, err := a.dateLocker(ctx)
	if err != nil {
		return nil, err
	}

	differ := usecase.NewScheduleDiffer(a.scheduleRepo, locker, a.log)
	monitor := usecase.NewScheduleMonitor(
		pageRepo,
		utils.NewScheduleTableParser(a.log),
		differ,
		a.metrics,
		a.log,
		a.cfg.FetchConcurrency,
	)

	notifier := usecase.NewCancellationNotifier(a.mailRepository(ctx), usecase.NotificationSettings{
		Recipients: a.cfg.TargetEmails,
		From:       a.cfg.EmailContact,
		Subject:    a.cfg.EmailSubject,
		Location:   a.cfg.Location,
	}, a.metrics, a.log)

	return usecase.NewCancellationJob(monitor, notifier, a.RetentionCleaner(), a.metrics, a.log, usecase.JobSettings{
		TimeMin:  a.cfg.TimeMin,
		TimeMax:  a.cfg.TimeMax,
		Filter:   a.cfg.PlaneFilter(),
		Location: a.cfg.Location,
		DryRun:   dryRun,
	}), nil
}

// RetentionCleaner wires the cleanup step on its own
func (a *App) RetentionCleaner() *usecase.RetentionCleaner {
	return usecase.NewRetentionCleaner(a.scheduleRepo, a.metrics, a.log)
}

// PushMetrics sends the run metrics to the Pushgateway when one is configured
func (a *App) PushMetrics(ctx context.Context, job string) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.PushgatewayURL, job); err != nil {
		a.log.Error("Failed to push metrics", "gateway", a.cfg.PushgatewayURL, "error", err)
	}
}

// Close releases store and lock connections
func (a *App) Close() {
	if err := a.scheduleRepo.Close(); err != nil {
		a.log.Error("Failed to close schedule store", "error", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Failed to close redis client", "error", err)
		}
	}
}
