package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/studyflash/internal/api"
	"github.com/vytor/studyflash/internal/auth"
	"github.com/vytor/studyflash/internal/config"
	"github.com/vytor/studyflash/internal/db"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/generator"
	"github.com/vytor/studyflash/internal/jobs"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/repository/sqlite"
	"github.com/vytor/studyflash/internal/scheduler"
	"github.com/vytor/studyflash/internal/services"
	"github.com/vytor/studyflash/internal/sessionlock"
	"github.com/vytor/studyflash/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("StudyFlash Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("business_timezone=%s", cfg.BusinessTimezone)
	log.Debug("new_cards_per_session=%d", cfg.NewCardsPerSession)
	log.Debug("generator=%s", cfg.Generator)
	log.Debug("generation_timeout=%s", cfg.GenerationTimeout)
	log.Debug("abandon_worker_count=%d", cfg.AbandonWorkerCount)
	log.Debug("abandon_queue_size=%d", cfg.AbandonQueueSize)
	log.Debug("quiz_idle_timeout=%s", cfg.QuizIdleTimeout)
	log.Debug("abandon_sweep_interval=%s", cfg.AbandonSweepEvery)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Repositories
	txs := sqlite.NewTxRunner(database.DB)
	deckRepo := sqlite.NewDeckRepository(database.DB)
	cardRepo := sqlite.NewFlashcardRepository(database.DB)
	studyRepo := sqlite.NewStudySessionRepository(database.DB)
	quizRepo := sqlite.NewQuizSessionRepository(database.DB)

	grader := flashcard.NewGrader(flashcard.DefaultGraderConfig())
	classifier := flashcard.NewClassifier(cfg.Location())
	locks := sessionlock.New()

	var gen *generator.Generator
	switch cfg.Generator {
	case config.GeneratorAnthropic:
		log.Info("question generator: anthropic (%s)", cfg.AnthropicModel)
		gen = generator.New(generator.NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), cfg.AnthropicModel)
	default:
		log.Warn("question generator: mock, quizzes will use canned questions")
		gen = generator.New(generator.NewMockClient(), "mock")
	}

	// Initialize services
	deckService := services.NewDeckService(deckRepo, nil)
	flashcardService := services.NewFlashcardService(txs, deckRepo, cardRepo, grader, classifier, nil)
	importService := services.NewImportService(flashcardService)
	studyService := services.NewStudyService(txs, deckRepo, cardRepo, studyRepo, grader, classifier, locks,
		services.StudyConfig{NewCardsPerSession: cfg.NewCardsPerSession}, nil)
	quizService := services.NewQuizService(txs, quizRepo, gen, locks,
		services.QuizConfig{GenerationTimeout: cfg.GenerationTimeout}, nil)

	// Abandon beacons are processed off the request path
	abandonPool := worker.NewPool("abandon", cfg.AbandonWorkerCount, cfg.AbandonQueueSize)
	sched := scheduler.New(quizService, cfg.QuizIdleTimeout, cfg.AbandonSweepEvery)

	srv := &api.Server{
		DeckService:      deckService,
		FlashcardService: flashcardService,
		ImportService:    importService,
		StudyService:     studyService,
		QuizService:      quizService,
		JobQueue:         jobs.NewWorkerQueue(abandonPool, quizService),
		Issuer:           auth.NewIssuer(cfg.JWTSecret),
		DB:               database,
		CORSOrigins:      cfg.CORSOrigins,
		MaxImportBytes:   cfg.MaxImportBytes,
	}

	ctx, cancel := context.WithCancel(context.Background())
	abandonPool.Start(ctx)
	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler: %v", err)
		os.Exit(1)
	}

	// Configure HTTP server. WriteTimeout leaves room for question generation.
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping scheduler")
	sched.Stop()

	// Let queued abandons drain before the database closes
	log.Debug("stopping abandon pool")
	abandonPool.Stop(10 * time.Second)
	cancel()

	log.Info("===========================================")
	log.Info("StudyFlash Server Stopped")
	log.Info("===========================================")
}
