package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plazahq/plaza/api/internal/batch"
	"github.com/plazahq/plaza/api/internal/config"
	"github.com/plazahq/plaza/api/internal/database"
	"github.com/plazahq/plaza/api/internal/jobs"
	"github.com/plazahq/plaza/api/internal/metrics"
	"github.com/plazahq/plaza/api/internal/repository"
	"github.com/plazahq/plaza/api/internal/scheduler"
	"github.com/plazahq/plaza/api/internal/service"
	"github.com/plazahq/plaza/api/internal/store"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize snapshot store. Snapshot persistence is best-effort,
	// so a missing Redis only degrades status lookups after restart.
	snapshotStore := store.NewRedisStore(store.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = snapshotStore.Close() }()

	if err := snapshotStore.Ping(ctx); err != nil {
		slog.Warn("snapshot store unreachable, continuing without it",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("connected to snapshot store", slog.String("addr", cfg.Redis.Addr))
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Initialize batch engine
	processor := batch.NewProcessor(batch.ProcessorConfig{
		Logger:      logger,
		Store:       snapshotStore,
		Metrics:     collector,
		SnapshotTTL: cfg.Jobs.SnapshotTTL,
	})

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	eventService := service.NewEventService(eventRepo, cfg.Jobs.EventHorizon)
	couponService := service.NewCouponService(couponRepo)
	loyaltyService := service.NewLoyaltyService(pointsRepo)

	notificationService := service.NewNotificationService(service.NotificationServiceConfig{
		Logger:  logger,
		Sender:  service.NewLogSender(logger),
		Enabled: cfg.Push.Enabled || cfg.IsDevelopment(),
	})

	// Initialize batch jobs
	pointsExpiryJob := jobs.NewPointsExpiryJob(logger, processor, loyaltyService)
	dailyDigestJob := jobs.NewDailyDigestJob(logger, processor, userRepo, notificationService)

	// Initialize scheduling manager
	manager := scheduler.NewManager(scheduler.ManagerConfig{
		Logger:        logger,
		Processor:     processor,
		Events:        eventService,
		Coupons:       couponService,
		Notifications: notificationService,
		BatchJobs:     []scheduler.BatchJob{pointsExpiryJob, dailyDigestJob},
		DefaultRunOptions: scheduler.RunOptions{
			BatchSize:      cfg.Jobs.BatchSize,
			MaxConcurrency: cfg.Jobs.MaxConcurrency,
			RetryAttempts:  cfg.Jobs.RetryAttempts,
		},
		PointsExpirySchedule: cfg.Jobs.PointsExpirySchedule,
		DailyDigestSchedule:  cfg.Jobs.DailyDigestSchedule,
		ScheduleRefreshSpec:  cfg.Jobs.ScheduleRefreshInterval,
	})

	if err := manager.Initialize(ctx); err != nil {
		slog.Error("failed to initialize scheduling manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Expose metrics
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.MetricsPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting metrics server",
			slog.String("port", cfg.Server.MetricsPort),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler...")

	manager.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("scheduler exited")
}
