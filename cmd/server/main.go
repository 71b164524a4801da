package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/database"
	"github.com/stemsi/exstem-cbt/internal/events"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/handler"
	"github.com/stemsi/exstem-cbt/internal/logger"
	"github.com/stemsi/exstem-cbt/internal/middleware"
	"github.com/stemsi/exstem-cbt/internal/repository"
	"github.com/stemsi/exstem-cbt/internal/router"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/storage"
	"github.com/stemsi/exstem-cbt/internal/validator"
	"github.com/stemsi/exstem-cbt/internal/worker"
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
		Str("result_sink", cfg.ResultSink).
		Str("violation_policy", string(cfg.ViolationPolicy)).
		Msg("Starting ExStem CBT")

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
	questionBankRepo := repository.NewQuestionBankRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)

	// ─── Result Sink ───────────────────────────────────────────────────
	var sink exam.ResultSink
	switch cfg.ResultSink {
	case config.ResultSinkKafka:
		kafkaSink, err := events.NewKafkaResultSink(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.ResultTopic,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.KafkaBrokers).Msg("Failed to create Kafka result sink")
		}
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Error().Err(err).Msg("Kafka result sink close error")
			}
		}()
		sink = kafkaSink
	default:
		sink = service.NewQueueResultSink(rdb)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	examService := service.NewExamService(questionBankRepo, rdb, cfg, log)
	monitorService := service.NewMonitorService(rdb, resultRepo, violationRepo)
	resultService := service.NewResultService(resultRepo)
	sessionService := service.NewExamSessionService(
		examService,
		storage.NewRedisStorage(rdb, cfg.SessionRecordTTL),
		sink,
		rdb,
		monitorService,
		cfg,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, examService, sessionService, log),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, examService, log),
		Exam:          handler.NewExamHandler(examService, resultService, sessionService, log),
		WS:            handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Monitor:       handler.NewMonitorHandler(sessionService, monitorService, log),
		System:        handler.NewSystemHandler(rdb, sessionService, log),
	}

	// A whole lab logs in at once behind one NAT address; keep the window wide.
	authLimiter := middleware.NewRateLimiter(rdb, "auth", 120, time.Minute, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		resultWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		violationWorker.Start(workerCtx)
	}()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load every exam package into Redis BEFORE accepting traffic.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, authLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	log.Info().
		Str("signal", sig.String()).
		Int("live_sessions", sessionService.LiveCount()).
		Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their final flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
