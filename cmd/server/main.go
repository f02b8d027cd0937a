package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/assessor"
	"github.com/writeitgreat/proposal-eval/internal/config"
	"github.com/writeitgreat/proposal-eval/internal/db"
	"github.com/writeitgreat/proposal-eval/internal/extractor"
	"github.com/writeitgreat/proposal-eval/internal/handlers"
	"github.com/writeitgreat/proposal-eval/internal/judge"
	"github.com/writeitgreat/proposal-eval/internal/notify"
	"github.com/writeitgreat/proposal-eval/internal/pipeline"
	"github.com/writeitgreat/proposal-eval/internal/repository"
	"github.com/writeitgreat/proposal-eval/internal/router"
	"github.com/writeitgreat/proposal-eval/internal/scoring"
	"github.com/writeitgreat/proposal-eval/internal/storage"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.DatabaseFile)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.DatabaseFile); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Weighting schemes are validated at startup; a corrupt table never
	// serves a submission.
	schemes, err := scoring.LoadSchemes()
	if err != nil {
		logger.Fatal("Failed to load weighting schemes", "error", err)
	}

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", "error", err)
	}

	repo := repository.NewRepository(database)
	judgeClient := judge.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	assess := assessor.New(judgeClient, schemes, logger)
	ext := extractor.New(cfg.MinTextChars)
	team := notify.NewMailchimpNotifier(cfg.MailchimpAPIKey, cfg.MailchimpFromEmail, cfg.TeamEmail, logger)
	reports := &notify.LogReportSink{Logger: logger}

	pipe := pipeline.New(repo, s3Storage, ext, assess, team, reports, cfg, logger)

	// Resume submissions interrupted by a previous shutdown
	if err := pipe.ResumeAll(context.Background()); err != nil {
		logger.Error("Failed to resume in-flight submissions", "error", err)
	}

	// Setup HTTP router
	subHandler := handlers.NewSubmissionHandler(repo, s3Storage, pipe, cfg.MaxFileSize, logger)
	handler := router.NewRouter(subHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
