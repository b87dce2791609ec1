package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kanbanapp "github.com/erp/servicedesk/internal/application/kanban"
	soapp "github.com/erp/servicedesk/internal/application/serviceorder"
	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/erp/servicedesk/internal/infrastructure/auth"
	"github.com/erp/servicedesk/internal/infrastructure/cache"
	"github.com/erp/servicedesk/internal/infrastructure/config"
	"github.com/erp/servicedesk/internal/infrastructure/event"
	"github.com/erp/servicedesk/internal/infrastructure/logger"
	"github.com/erp/servicedesk/internal/infrastructure/notification"
	"github.com/erp/servicedesk/internal/infrastructure/persistence"
	"github.com/erp/servicedesk/internal/infrastructure/telemetry"
	"github.com/erp/servicedesk/internal/interfaces/http/handler"
	"github.com/erp/servicedesk/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	eventWorkers   = 4
	eventQueueSize = 1024
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export is teed into zap, so it must exist before the logger
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	}
	if logCfg.TimeFormat == "" {
		logCfg.TimeFormat = logger.DefaultTimeFormat
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting service desk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerURL,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		tracerProvider.EnableSpanProfiles()
	}

	gormLevel := cfg.Database.LogLevel
	if gormLevel == "" {
		gormLevel = cfg.Log.Level
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(gormLevel), cfg.Database.SlowThreshold)

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.DBTraceEnabled,
		DBName:     cfg.Database.DBName,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories
	orderRepo := persistence.NewGormServiceOrderRepository(db.DB)
	historyRepo := persistence.NewGormStatusHistoryRepository(db.DB)
	columnRepo := persistence.NewGormKanbanColumnRepository(db.DB)
	cardRepo := persistence.NewGormKanbanCardRepository(db.DB)
	permissionGate := persistence.NewGormPermissionGate(db.DB)
	stockLedger := persistence.NewGormStockLedger(db.DB)
	purchaseAutomation := persistence.NewGormPurchaseAutomation(db.DB, log)
	activityFeed := persistence.NewGormActivityFeed(db.DB)
	customerDirectory := persistence.NewGormCustomerDirectory(db.DB)

	businessMetrics, err := telemetry.NewBusinessMetrics(meterProvider.Meter("servicedesk"), stockLedger, log)
	if err != nil {
		log.Fatal("Failed to register business metrics", zap.Error(err))
	}

	scope := persistence.NewGormTransactionScope(db.DB, log)
	scope.SetEffectFailureHook(businessMetrics.RecordEffectFailures)

	// Redis backs notification dedup and the outbound notification stream.
	// Without it both fall back to in-process implementations.
	var (
		redisClient *redis.Client
		idempotency shared.IdempotencyStore
		notifier    serviceorder.Notifier
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		notifier = notification.NewRedisStreamNotifier(redisClient, notification.DefaultStream)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		notifier = notification.NewLogNotifier(log)
		log.Warn("Redis disabled, notifications are only logged")
	}
	idempotency = cache.NewIdempotencyStore(redisClient, log)

	// Application services
	orderService := soapp.NewServiceOrderService(scope, orderRepo, historyRepo, permissionGate, log)
	orderService.SetPurchaseAutomation(purchaseAutomation)
	orderService.SetActivityFeed(activityFeed)
	orderService.SetBusinessMetrics(businessMetrics)
	orderService.SetKanbanRequiresCapability(cfg.Workflow.KanbanRequiresQACapability)

	eventBus := event.NewInMemoryEventBus(log, eventWorkers, eventQueueSize)
	dispatcher := soapp.NewStatusNotificationDispatcher(customerDirectory, notifier, idempotency, cfg.Workflow.NotificationDedupTTL, log)
	eventBus.Subscribe(dispatcher, dispatcher.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	orderService.SetEventPublisher(eventBus)

	bridge := kanbanapp.NewAutomationBridge(orderService, orderRepo, customerDirectory, notifier, log)
	kanbanService := kanbanapp.NewKanbanService(scope, columnRepo, cardRepo, log)
	kanbanService.SetAutomationBridge(bridge)
	kanbanService.SetBusinessMetrics(businessMetrics)

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(pingCtx).Err()
		}
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:           log,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		Auth:             auth.NewJWTService(cfg.JWT),
		Meter:            meterProvider.Meter("http.server"),
		ProfilingLabels:  cfg.Telemetry.ProfilingEnabled,
		Health:           handler.NewHealthHandler(cfg.App.Name, version, checks),
		ServiceOrder:     handler.NewServiceOrderHandler(orderService),
		Kanban:           handler.NewKanbanHandler(kanbanService),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain background work before the stores it writes to go away
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	bridge.Wait()

	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing metrics", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		_, _ = os.Stderr.WriteString("error flushing logs: " + err.Error() + "\n")
	}
}
