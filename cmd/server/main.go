package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/api"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/chat"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/database"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/edgar"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/openfigi"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/repository"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/scheduler"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.LoggingConfig{}).WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.New(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	version, err := database.Migrate(context.Background(), db)
	if err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	logger.WithFields(logrus.Fields{
		"path":           cfg.Database.Path,
		"schema_version": version,
	}).Info("Connected to database")

	// Create repositories
	fundRepo := repository.NewFundRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	relRepo := repository.NewRelationshipRepository(db)

	// Create services
	loaderService := service.NewLoaderService(
		db,
		fundRepo,
		filingRepo,
		holdingRepo,
		relRepo,
		edgar.NewFetcher(cfg.Edgar, logger),
		openfigi.NewClient(cfg.OpenFIGI, logger),
		cfg.Loader,
		logger,
	)
	queryService := service.NewQueryService(fundRepo, filingRepo, holdingRepo, relRepo)
	runner := scheduler.NewRunner(loaderService, logger)

	var assistant *chat.Assistant
	generator, err := chat.NewGeminiGenerator(context.Background(), cfg.Chat)
	switch {
	case errors.Is(err, apperrors.ErrChatDisabled):
		logger.Info("GEMINI_API_KEY not set, chat assistant disabled")
	case err != nil:
		logger.WithError(err).Warn("Failed to create Gemini client, chat assistant disabled")
	default:
		assistant = chat.NewAssistant(queryService, generator, logger).WithLoader(runner.LoadTickers)
	}

	var cron *scheduler.Scheduler
	if cfg.Loader.Schedule != "" {
		cron, err = scheduler.New(cfg.Loader.Schedule, runner, logger)
		if err != nil {
			logger.WithError(err).Fatal("Invalid LOADER_SCHEDULE")
		}
		cron.Start()
		logger.WithField("schedule", cfg.Loader.Schedule).Info("Scheduled refresh enabled")
	}

	systemService := service.NewSystemService(db).
		WithFeature("chat", assistant != nil).
		WithFeature("scheduler", cron != nil)

	// Create router
	router := api.NewRouter(systemService, queryService, runner, assistant, cfg, logger)

	// Create HTTP server. Waiting load requests can run for minutes, so the
	// write timeout is generous.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cron != nil {
		select {
		case <-cron.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Scheduled refresh still running at shutdown")
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
