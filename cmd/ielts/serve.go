package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/ielts-exam-service/internal/cache"
	"github.com/SAP-F-2025/ielts-exam-service/internal/config"
	"github.com/SAP-F-2025/ielts-exam-service/internal/handlers"
	"github.com/SAP-F-2025/ielts-exam-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/ielts-exam-service/internal/services"
	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/SAP-F-2025/ielts-exam-service/internal/validator"
	"github.com/SAP-F-2025/ielts-exam-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().Bool("migrate", true, "Run database migrations on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := setupLogging(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}
	repo := postgres.NewRepository(db)

	appLogger := utils.NewSlogLogger(logger)

	var (
		cacheService cache.CacheService
		locker       cache.SessionLocker
	)
	if cfg.RedisEnabled {
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		cacheService = cache.NewRedisCache(client, appLogger)
		locker = cache.NewRedisLocker(client, cfg.SessionLockTTL, cfg.SessionLockWait)
	} else {
		logger.Warn("Redis disabled, using in-process cache and session locks; run a single replica")
		cacheService = cache.NewMemoryCache()
		locker = cache.NewMemoryLocker(cfg.SessionLockWait)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return fmt.Errorf("create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	v := validator.New()
	eventService := services.NewScoringEventService(publisher, logger)
	tests := services.NewTestService(repo, cacheService, cfg.TestCacheTTL, logger, v)
	serviceManager := services.ServiceManager{
		Test:    tests,
		Session: services.NewSessionService(repo, tests, eventService, locker, logger, v),
		Grading: services.NewGradingService(repo, tests, eventService, locker, logger, v),
		Export:  services.NewExportService(repo, tests, logger),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlers.NewHandlerManager(serviceManager, appLogger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}
