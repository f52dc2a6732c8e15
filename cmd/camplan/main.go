package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mledder/camplan/internal/api"
	"github.com/mledder/camplan/internal/calendarapi"
	"github.com/mledder/camplan/internal/config"
	"github.com/mledder/camplan/internal/notify"
	"github.com/mledder/camplan/internal/repository/postgres"
	"github.com/mledder/camplan/internal/service"
	"github.com/mledder/camplan/pkg/logger"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting camplan...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	kidRepo := postgres.NewKidRepository(db.DB)
	tripRepo := postgres.NewTripRepository(db.DB)
	weekRepo := postgres.NewWeekRepository(db.DB)
	campRepo := postgres.NewCampRepository(db.DB)
	sessionRepo := postgres.NewSessionRepository(db.DB)
	candidacyRepo := postgres.NewCandidacyRepository(db.DB)
	parentRepo := postgres.NewParentRepository(db.DB)
	syncJobRepo := postgres.NewSyncJobRepository(db.DB)

	// External calendar client
	calendar := calendarapi.NewClient(calendarapi.ClientOptions{
		BaseURL: cfg.CalendarBaseURL,
		Token:   cfg.CalendarToken,
		Timeout: cfg.SyncTimeout,
	})

	// Optional Telegram notifications
	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram notifier: %v", err)
	}

	// Service layer
	svc := service.New(db.DB, l,
		kidRepo, tripRepo, weekRepo, campRepo,
		sessionRepo, candidacyRepo, parentRepo, syncJobRepo,
		calendar, notifier,
		service.Options{
			ReminderLead:    cfg.ReminderLead,
			SyncMaxAttempts: cfg.SyncMaxAttempts,
		},
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Start calendar sync scheduler
	go svc.StartSyncScheduler(ctx, cfg.SyncInterval)

	// Start HTTP API server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Prometheus metrics on a separate port
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: promhttp.Handler(),
	}

	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	l.Info("camplan started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	httpServer.Close()
	metricsServer.Close()

	l.Info("camplan stopped")
}
