package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopdesk/catalog-service/api"
	"github.com/shopdesk/catalog-service/internal/auth"
	"github.com/shopdesk/catalog-service/internal/config"
	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/logger"
	"github.com/shopdesk/catalog-service/internal/ocr"
	"github.com/shopdesk/catalog-service/internal/payments"
	"github.com/shopdesk/catalog-service/internal/pipeline"
	"github.com/shopdesk/catalog-service/internal/services"
	"github.com/shopdesk/catalog-service/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	serverLog := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize OCR engine
	engine, err := ocr.New(ctx, cfg.OCR)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR engine: %w", err)
	}
	defer engine.Close()

	orchestrator := pipeline.NewOrchestrator(nil, engine, pipeline.Config{
		Concurrency:   cfg.OCR.Concurrency,
		Timeout:       cfg.OCR.Timeout,
		LanguageHints: cfg.OCR.LanguageHints,
	})

	deps := api.Deps{
		Config:    cfg,
		Extractor: orchestrator,
		Logger:    log.Logger,
	}

	// Initialize MinIO storage
	var archive services.ImageArchive
	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		serverLog.Warn().Err(err).Msg("MinIO storage not available, source images will not be archived")
	} else {
		archive = images
		deps.Images = images
		serverLog.Info().Str("bucket", cfg.Storage.Bucket).Msg("MinIO storage initialized")
	}

	// Initialize database connection pool
	store, err := db.Open(ctx, cfg.Database, logger.WithComponent("db"))
	if err != nil {
		serverLog.Warn().Err(err).Msg("database not available, running in extraction-only mode")
	} else {
		defer store.Close()
		if cfg.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when a database is configured")
		}

		processor := payments.NewStripe(cfg.Payments, logger.WithComponent("stripe"))
		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

		deps.Store = store
		deps.Intake = services.NewIntakeService(store, orchestrator, archive, log.Logger)
		deps.Payments = services.NewPaymentLinkService(store, processor, cfg.Payments.Currency, log.Logger)
		deps.Auth = auth.NewService(store, tokens, cfg.Auth.RequireApproval, log.Logger)
		serverLog.Info().Msg("database connection pool initialized")
	}

	handler := api.NewHandler(deps)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.OCR.Timeout + time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	serverLog.Info().
		Str("addr", srv.Addr).
		Str("version", api.Version).
		Str("ocr_engine", engine.Name()).
		Bool("database", deps.Store != nil).
		Bool("storage", deps.Images != nil).
		Msg("starting catalog service")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	serverLog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
