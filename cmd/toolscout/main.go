package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/backup"
	"github.com/fieldstash/toolscout/internal/config"
	dbRedis "github.com/fieldstash/toolscout/internal/db/redis"
	clipdetector "github.com/fieldstash/toolscout/internal/detector/clip"
	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	logpkg "github.com/fieldstash/toolscout/internal/logger"
	"github.com/fieldstash/toolscout/internal/metrics"
	catalogrepo "github.com/fieldstash/toolscout/internal/repository/catalog"
	"github.com/fieldstash/toolscout/internal/storage"
	chiTransport "github.com/fieldstash/toolscout/internal/transport/chi"
	openaiVision "github.com/fieldstash/toolscout/internal/transport/openai"
	assistantuc "github.com/fieldstash/toolscout/internal/usecase/assistant"
	cataloguc "github.com/fieldstash/toolscout/internal/usecase/catalog"
	detectuc "github.com/fieldstash/toolscout/internal/usecase/detect"
	healthuc "github.com/fieldstash/toolscout/internal/usecase/health"
	inventoryuc "github.com/fieldstash/toolscout/internal/usecase/inventory"
	searchuc "github.com/fieldstash/toolscout/internal/usecase/search"
	"github.com/fieldstash/toolscout/internal/version"
)

func main() {
	// Optional .env for local development; real environments set vars directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting toolscout API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register detection metrics explicitly (no init())
	metrics.RegisterDetectionMetrics()

	repo := catalogrepo.New(store).WithKeyPrefix(cfg.Storage.KeyPrefix)
	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create search index", zap.Error(err))
	}

	files, err := storage.NewDisk(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("Failed to prepare upload storage", zap.Error(err))
	}

	detectors := buildDetectors(cfg, logger)
	detectSvc := detectuc.New(detectors, logger).
		WithTimeout(time.Duration(cfg.Detection.TimeoutSec) * time.Second)

	var backupClient *backup.Client
	if cfg.Backup.Enabled {
		backupClient = backup.New(backup.Config{
			BaseURL:     cfg.Backup.BaseURL,
			AccessToken: cfg.Backup.AccessToken,
			Folder:      cfg.Backup.Folder,
			Timeout:     time.Duration(cfg.Backup.TimeoutSec) * time.Second,
		})
	}

	catalogSvc := cataloguc.New(
		repo, files, backupCompat(backupClient), detectSvc,
		cfg.Storage.MaxFileSize, cfg.Storage.AllowedTypes, logger,
	).WithBackupTimeout(time.Duration(cfg.Backup.TimeoutSec) * time.Second)

	searchSvc := searchuc.New(repo)
	inventorySvc := inventoryuc.New(repo)
	assistantSvc := assistantuc.New(inventorySvc)
	healthSvc := healthuc.New(store, detectSvc)

	server := chiTransport.NewServer(
		catalogSvc, searchSvc, inventorySvc, assistantSvc, healthSvc,
		detectSvc, cfg.Storage.MaxFileSize, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildDetectors assembles the configured backends. A backend that fails to
// initialize is skipped with a warning; the service runs with whatever is
// left, down to zero backends (uploads then get empty tag sets).
func buildDetectors(cfg config.Config, logger *zap.Logger) []domdetect.Detector {
	var detectors []domdetect.Detector

	if cfg.Detection.Vision.Enabled {
		detectors = append(detectors, openaiVision.NewVision(&openaiVision.Config{
			APIKey:  cfg.Detection.Vision.APIKey,
			BaseURL: cfg.Detection.Vision.BaseURL,
			Model:   cfg.Detection.Vision.Model,
			Logger:  logger,
		}))
		logger.Info("Vision backend enabled", zap.String("model", cfg.Detection.Vision.Model))
	}

	if cfg.Detection.CLIP.Enabled {
		adapter, err := clipdetector.New(
			cfg.Detection.CLIP.ModelDir,
			cfg.Detection.CLIP.TokenizerPath,
			cfg.Detection.ConfidenceThreshold,
			logger,
		)
		if err != nil {
			logger.Warn("CLIP backend failed to initialize, continuing without it", zap.Error(err))
		} else {
			detectors = append(detectors, adapter)
			logger.Info("CLIP backend enabled", zap.String("model_dir", cfg.Detection.CLIP.ModelDir))
		}
	}

	if len(detectors) == 0 {
		logger.Warn("No detector backends enabled; uploads will carry no tags")
	}
	return detectors
}

// backupCompat converts a possibly-nil *backup.Client into the usecase
// interface without producing a typed-nil interface value.
func backupCompat(c *backup.Client) cataloguc.Backup {
	if c == nil {
		return nil
	}
	return c
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line (one line per request)
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
