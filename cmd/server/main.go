package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	_ "github.com/erp/productsync/docs"
	catalogapp "github.com/erp/productsync/internal/application/catalog"
	integrationapp "github.com/erp/productsync/internal/application/integration"
	"github.com/erp/productsync/internal/infrastructure/auth"
	"github.com/erp/productsync/internal/infrastructure/cache"
	"github.com/erp/productsync/internal/infrastructure/config"
	"github.com/erp/productsync/internal/infrastructure/erp"
	"github.com/erp/productsync/internal/infrastructure/logger"
	"github.com/erp/productsync/internal/infrastructure/migration"
	"github.com/erp/productsync/internal/infrastructure/persistence"
	"github.com/erp/productsync/internal/infrastructure/persistence/models"
	"github.com/erp/productsync/internal/infrastructure/telemetry"
	"github.com/erp/productsync/internal/interfaces/http/handler"
	"github.com/erp/productsync/internal/interfaces/http/router"
	"github.com/erp/productsync/migrations"
)

//	@title			Product Sync API
//	@version		1.0
//	@description	Admin API that keeps the local product catalog in sync with the ERP

//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting product sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("erp_provider", cfg.Erp.Provider),
	)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// Telemetry providers stay no-op when disabled
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdown(log, "tracer provider", tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer shutdown(log, "meter provider", mp.Shutdown)

	meter := mp.Meter("productsync")
	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.DBSystem = dbSystem(cfg.Database.Driver)
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	if err := migrateSchema(cfg, db, log); err != nil {
		return err
	}

	lockerFactory := cache.NewLockerFactory(cfg.Lock, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	locker, err := lockerFactory.CreateLocker()
	if err != nil {
		return err
	}
	defer func() {
		if err := locker.Close(); err != nil {
			log.Error("Error closing locker", zap.Error(err))
		}
	}()

	billyCfg, err := erp.NewBillyConfigFromSettings(cfg.Erp)
	if err != nil {
		return err
	}
	billy, err := erp.NewBillyAdapter(billyCfg,
		erp.WithSyncMetrics(syncMetrics),
		erp.WithLogger(log),
	)
	if err != nil {
		return err
	}

	// Initialize repositories and application services
	productRepo := persistence.NewGormProductRepository(db.DB)
	productService := catalogapp.NewProductSyncService(productRepo, billy, locker,
		catalogapp.WithLogger(log),
		catalogapp.WithSyncMetrics(syncMetrics),
	)
	importReconciler := integrationapp.NewImportReconciler(productRepo, billy, locker,
		integrationapp.WithLogger(log),
		integrationapp.WithSyncMetrics(syncMetrics),
		integrationapp.WithPageSize(billyCfg.PageSize),
	)

	var jwtService *auth.JWTService
	if cfg.Auth.Enabled {
		jwtService = auth.NewJWTService(cfg.Auth)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.Dependencies{
		Config:     cfg,
		Logger:     log,
		Products:   handler.NewProductHandler(productService, importReconciler),
		Health:     handler.NewHealthHandler(db, telemetry.ServiceVersion),
		JWTService: jwtService,
		Meter:      meter,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// migrateSchema applies the embedded SQL migrations on postgres when database.auto_migrate is set.
// SQLite has no migration driver and gets its table from the GORM model.
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		if err := db.DB.AutoMigrate(&models.ProductModel{}); err != nil {
			return fmt.Errorf("failed to create sqlite schema: %w", err)
		}
		return nil
	}
	if !cfg.Database.AutoMigrate {
		return nil
	}

	// golang-migrate closes the connection it was given
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("Error shutting down "+name, zap.Error(err))
	}
}
