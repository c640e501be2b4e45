package main

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/config"
	"github.com/fenilmodi00/ipo-gmp-tracker/database"
	"github.com/fenilmodi00/ipo-gmp-tracker/handlers"
	"github.com/fenilmodi00/ipo-gmp-tracker/jobs"
	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

// application holds the wired services and jobs for one command invocation
type application struct {
	cfg       *config.Config
	location  *time.Location
	factory   *shared.HTTPClientFactory
	registry  services.IPORegistry
	store     services.GMPSampleStore
	engine    *services.AlertEngine
	ingestion *services.IngestionService

	trackJob   *jobs.DailyIPOTrackJob
	collectJob *jobs.GMPCollectJob
	alertJob   *jobs.AlertJob
	cleanupJob *jobs.CleanupJob
	exportJob  *jobs.ExportJob
}

// newApplication validates configuration, connects and migrates the database, and wires every job.
// Configuration and connection failures return before any IPO is read.
func newApplication(ctx context.Context, cfg *config.Config, requireNotifier bool) (*application, error) {
	if err := cfg.Validate(requireNotifier); err != nil {
		return nil, err
	}

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		database.Close()
		return nil, shared.NewRunError(shared.ErrorCategoryDatabase, "DATABASE_UNAVAILABLE",
			"failed to connect to database", "main", "newApplication", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, shared.NewRunError(shared.ErrorCategoryDatabase, "MIGRATION_FAILED",
			"failed to apply schema", "main", "newApplication", err)
	}

	app := &application{
		cfg:      cfg,
		location: cfg.Location(),
		factory:  shared.NewHTTPClientFactory(30 * time.Second),
		registry: services.NewPostgresIPORegistry(database.DB),
		store:    services.NewPostgresGMPSampleStore(database.DB),
	}

	sourceConfig := shared.NewDefaultUnifiedConfiguration().Service
	sourceConfig.BaseURL = cfg.SourceURL
	utility := services.NewUtilityService()
	source := services.NewInvestorGainSource(sourceConfig, cfg.SourceMode, utility)

	app.ingestion = services.NewIngestionService(source, app.registry, app.store, cfg.Alert, utility)
	app.engine = services.NewAlertEngine(app.registry, app.store, app.buildNotifier(), cfg.Alert)

	app.trackJob = jobs.NewDailyIPOTrackJob(app.ingestion, app.location)
	app.collectJob = jobs.NewGMPCollectJob(app.ingestion, app.location)
	app.alertJob = jobs.NewAlertJob(app.engine, app.location)
	app.cleanupJob = jobs.NewCleanupJob(services.NewRetentionService(app.registry, cfg.Alert), app.location)
	app.exportJob = jobs.NewExportJob(services.NewSpreadsheetExporter(app.registry, app.store), cfg.ExportPath)

	logrus.WithFields(logrus.Fields{
		"threshold":     cfg.Alert.GMPThresholdPercent,
		"window_policy": cfg.Alert.WindowPolicy,
		"window_size":   cfg.Alert.WindowSize,
		"min_lead_days": cfg.Alert.MinLeadDays,
		"retention":     cfg.Alert.RetentionWeeks,
		"source_mode":   cfg.SourceMode,
		"timezone":      app.location.String(),
	}).Info("IPO GMP tracker services initialized")

	return app, nil
}

func (a *application) buildNotifier() services.Notifier {
	notifierConfig := shared.NewNotifierServiceConfig()
	var channels []services.Notifier

	if a.cfg.HasTelegram() {
		channels = append(channels, services.NewTelegramNotifier(
			a.cfg.TelegramBotToken, a.cfg.TelegramChannelID, notifierConfig, a.factory))
	}
	if len(a.cfg.WebhookURLs) > 0 {
		channels = append(channels, services.NewWebhookNotifier(a.cfg.WebhookURLs, notifierConfig, a.factory))
	}
	if len(channels) == 0 {
		logrus.Warn("No notification channel configured, alerts will not be delivered")
	}
	return services.NewCompositeNotifier(channels...)
}

func (a *application) close() {
	a.factory.CleanupAllClients()
	database.Close()
}

func (a *application) newServer() *fiber.App {
	server := fiber.New(fiber.Config{DisableStartupMessage: true})
	server.Use(logger.New())
	server.Use(cors.New())

	handlers.RegisterRoutes(server,
		handlers.NewIPOHandler(a.registry, a.store),
		handlers.NewGMPHandler(a.registry, a.store, a.engine.Aggregator),
		handlers.NewAdminHandler(a.alertJob, a.collectJob),
		func() error { return database.HealthCheck(context.Background()) },
	)
	return server
}
