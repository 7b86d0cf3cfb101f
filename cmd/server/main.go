package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kkmanuu/online-academicaxis-management-system/internal/attempt"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/config"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/database"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/handler"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/logger"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/repository"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/router"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/service"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/session"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/validator"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam session coordinator")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	resultRepo := repository.NewResultRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	examService := service.NewExamService(examRepo, rdb, log)
	resultService := service.NewResultService(resultRepo, rdb, log)

	// ─── Session Core ─────────────────────────────────────────────────
	registry := session.NewRegistry(log)
	relay := session.NewRelay(registry, log)
	attempts := attempt.NewManager(examService, resultService, log,
		attempt.WithRetention(cfg.ResultRetention))

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:    handler.NewExamHandler(examService, registry, log),
		Attempt: handler.NewAttemptHandler(attempts, log),
		WS: handler.NewWSHandler(registry, relay, attempts,
			cfg.AllowedOrigins, cfg.PeerSendBuffer, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	resultWorker := worker.NewResultWorker(pool, rdb, log)
	go resultWorker.Start(workerCtx)
	go attempts.RunJanitor(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published exam definitions into Redis BEFORE accepting
	// traffic so concurrent first joins don't stampede the database.
	if err := examService.PrewarmAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the result queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
