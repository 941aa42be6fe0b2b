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

	"career-coach-backend/config"
	_ "career-coach-backend/docs" // Important for Swagger
	v1 "career-coach-backend/internal/delivery/http/v1"
	"career-coach-backend/internal/repository/postgres"
	"career-coach-backend/internal/usecase"
	"career-coach-backend/pkg/audit"
	"career-coach-backend/pkg/auth"
	"career-coach-backend/pkg/database"
	"career-coach-backend/pkg/events"
	"career-coach-backend/pkg/logger"
	"career-coach-backend/pkg/redis"
	"career-coach-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.IsProduction())
	auditLog := audit.Init("career-coach-backend", cfg.AppEnv)
	defer func() { _ = auditLog.Sync() }()
	logger.Log.Info("Starting career coach backend", "port", cfg.Port, "env", cfg.AppEnv)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbPool.Close()

	if autoMigrate {
		applied, err := database.Migrate(ctx, dbPool)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Log.Info("Migrations applied", "versions", applied)
	}

	health := map[string]usecase.Pinger{"database": dbPool, "redis": nil}

	// 4. Setup Redis (rate limiting); in-memory fallback when absent
	if cfg.UpstashRedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting falls back to memory", "error", err)
		} else {
			health["redis"] = usecase.PingFunc(redis.HealthCheck)
			defer func() { _ = redis.Close() }()
		}
	}

	// 5. Setup UseCases
	opts := []usecase.ProfileOption{
		usecase.WithTxTimeout(cfg.ProfileTxTimeout),
		usecase.WithAuditLogger(auditLog),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewInsightPublisher(cfg.KafkaBrokers, cfg.KafkaInsightTopic)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer func() { _ = publisher.Close() }()
		opts = append(opts, usecase.WithInsightPublisher(publisher))
	} else {
		logger.Log.Warn("KAFKA_BROKERS not configured - new industries will not be queued for enrichment")
	}

	profileRepo := postgres.NewProfileRepository(dbPool)
	profileUC := usecase.NewProfileUsecase(profileRepo, auth.NewContextResolver(), validation.New(), opts...)

	// 6. Setup Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		ProfileUC:    profileUC,
		HealthUC:     usecase.NewHealthUsecase(health),
		JWKSProvider: auth.NewProvider(cfg.ClerkJWKSURL),
		Config:       cfg,
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Log.Info("Server exiting")
	return err
}
