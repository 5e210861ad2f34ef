package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/salesconsole/internal/calendar"
	"github.com/alimgiray/salesconsole/internal/handlers"
	"github.com/alimgiray/salesconsole/internal/middleware"
	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/alimgiray/salesconsole/internal/repositories"
	"github.com/alimgiray/salesconsole/internal/services"
	"github.com/alimgiray/salesconsole/internal/workers"
	"github.com/alimgiray/salesconsole/pkg/config"
	"github.com/alimgiray/salesconsole/pkg/database"
	"github.com/alimgiray/salesconsole/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize dependencies
	contactRepo := repositories.NewContactRepository(database.DB)
	itemRepo := repositories.NewConfirmationItemRepository(database.DB)
	runRepo := repositories.NewGenerationRunRepository(database.DB)

	source := newEventSource(cfg)
	pipeline := services.NewEligibilityPipeline(services.EligibilityOptions{
		OwnerEmail:      cfg.Organization.OwnerEmail,
		InternalDomains: cfg.Organization.Domains,
	})
	phones := services.NewPhoneNormalizer(cfg.Organization.DefaultCountryCode, cfg.Organization.MinPhoneDigits)
	settings := services.EngineSettings{
		Location:    cfg.Organization.Timezone,
		ScanDays:    cfg.Engine.ScanDays,
		SnoozeDays:  cfg.Engine.SnoozeDays,
		Concurrency: cfg.Engine.Concurrency,
	}

	confirmationService := services.NewConfirmationService(source, pipeline, phones, itemRepo, contactRepo, runRepo, settings)
	diagnosticService := services.NewDiagnosticService(source, pipeline, phones, contactRepo, settings)
	exportService := services.NewExportService(confirmationService)
	schedulerService := services.NewSchedulerService(runRepo, cfg.Engine.GenerationCron, cfg.Organization.Timezone)

	// Initialize worker manager
	executor := workers.RunExecutorFunc(func(ctx context.Context, run *models.GenerationRun) error {
		_, err := confirmationService.ExecuteRun(ctx, run)
		return err
	})
	workerManager := workers.NewWorkerManager(runRepo, executor, cfg.Engine.Workers,
		time.Duration(cfg.Engine.WorkerPollSeconds)*time.Second)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	setupRoutes(router, cfg, confirmationService, diagnosticService, exportService)

	// Start scheduler and workers
	if err := schedulerService.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"timezone": cfg.Organization.TimezoneName,
			"source":   cfg.Calendar.Source,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}

	<-schedulerService.Stop().Done()
	if err := workerManager.StopAll(); err != nil {
		logger.WithError(err).Error("Failed to stop workers")
	}

	logger.Info("Server stopped")
}

// newEventSource picks the calendar backend from configuration
func newEventSource(cfg *config.Config) calendar.EventSource {
	parse := calendar.ParseOptions{
		OwnerEmail: cfg.Organization.OwnerEmail,
		Location:   cfg.Organization.Timezone,
	}

	if parse.OwnerEmail == "" {
		logger.GetLogger().Warn("CALENDAR_OWNER_EMAIL is not set; the calendar owner will not be excluded from confirmations")
	}

	if cfg.Calendar.Source == "ics" {
		if cfg.Calendar.ICSURL == "" {
			logger.Fatalf("ICS_URL is required when CALENDAR_SOURCE=ics")
		}
		return calendar.NewICSSource(cfg.Calendar.ICSURL, nil, parse)
	}

	source := calendar.NewCalDAVSource(calendar.CalDAVOptions{
		URL:          cfg.Calendar.CalDAVURL,
		Username:     cfg.Calendar.CalDAVUsername,
		Password:     cfg.Calendar.CalDAVPassword,
		BearerToken:  cfg.Calendar.CalDAVToken,
		CalendarPath: cfg.Calendar.CalDAVPath,
		Parse:        parse,
	})
	if !source.IsConfigured() {
		logger.GetLogger().Warn("CalDAV is not configured; generation will fail until CALDAV_URL is set")
	}
	return source
}

func setupRoutes(router *gin.Engine, cfg *config.Config, confirmationService *services.ConfirmationService,
	diagnosticService *services.DiagnosticService, exportService *services.ExportService) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	notFoundHandler := handlers.NewNotFoundHandler()
	confirmationHandler := handlers.NewMeetingConfirmationHandler(confirmationService, diagnosticService, exportService)

	router.GET("/health", healthHandler.Health)

	// Operator routes
	confirmations := router.Group("/meetings-confirmations")
	confirmations.Use(middleware.OperatorAuthRequired(cfg.Operator.Token))
	confirmationHandler.RegisterRoutes(confirmations)

	// 404 handler for non-existent routes
	router.NoRoute(notFoundHandler.NotFound)
}
