package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opencbt/practice-backend/internal/config"
	"github.com/opencbt/practice-backend/internal/database"
	"github.com/opencbt/practice-backend/internal/handler"
	"github.com/opencbt/practice-backend/internal/logger"
	"github.com/opencbt/practice-backend/internal/repository"
	"github.com/opencbt/practice-backend/internal/router"
	"github.com/opencbt/practice-backend/internal/service"
	"github.com/opencbt/practice-backend/internal/validator"
	"github.com/opencbt/practice-backend/internal/worker"
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
		Msg("Starting CBT Practice Backend")

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
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(userRepo, rdb, cfg, log)
	catalogService := service.NewCatalogService(examRepo, subjectRepo)
	examService := service.NewExamService(examRepo)
	subjectService := service.NewSubjectService(subjectRepo, examRepo)
	questionService := service.NewQuestionService(questionRepo, subjectRepo)

	// Countdown flushes go through the redis queue; the worker persists them.
	flush := func(ctx context.Context, attemptID uuid.UUID, seconds int) error {
		return worker.EnqueueTimeFlush(ctx, rdb, attemptID, seconds)
	}
	attemptService := service.NewAttemptService(attemptRepo, questionRepo, subjectRepo, cfg, flush, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Catalog:  handler.NewCatalogHandler(catalogService),
		Attempt:  handler.NewAttemptHandler(attemptService),
		Exam:     handler.NewExamHandler(examService),
		Subject:  handler.NewSubjectHandler(subjectService),
		Question: handler.NewQuestionHandler(questionService),
		WS:       handler.NewWSHandler(rdb, attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	timeFlushWorker := worker.NewTimeFlushWorker(pool, rdb, log)
	go timeFlushWorker.Start(workerCtx)

	// ─── Resume In-Flight Attempts ────────────────────────────────────
	// Countdowns that were running when the previous process died pick up
	// from their last persisted remaining time.
	if err := attemptService.ResumeInFlight(ctx); err != nil {
		log.Warn().Err(err).Msg("Resuming in-flight attempts failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 2. Stop countdowns, then the worker, and let the queue drain.
	attemptService.Shutdown()
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
