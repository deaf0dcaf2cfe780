package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/gateway"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/storefront/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Storefront Payments API
//	@version		1.0
//	@description	Payment gateway integration and order reconciliation for the storefront backend.

//	@contact.name	Storefront Payments

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry comes first so the bridged logger and DB callbacks see the real providers
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, cfg.Telemetry.ServiceName)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront payments backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("merchant_id", cfg.Gateway.MerchantID),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log exporter", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.NewDBTracing(cfg.Telemetry, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	repos := persistence.NewRepositories(db.DB)
	uow := persistence.NewGormUnitOfWork(db)

	// Notification dedupe store
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewPaymentAuditHandler(log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Gateway
	phonePeConfig, err := gateway.NewPhonePeConfigBuilder().
		SetMerchantID(cfg.Gateway.MerchantID).
		SetSalt(cfg.Gateway.SaltKey, cfg.Gateway.SaltIndex).
		SetBaseURL(cfg.Gateway.BaseURL).
		SetRedirectURL(cfg.Gateway.RedirectURL()).
		SetCallbackURL(cfg.Gateway.CallbackURL()).
		SetTimeout(cfg.Gateway.Timeout).
		Build()
	if err != nil {
		log.Fatal("Invalid gateway configuration", zap.Error(err))
	}
	phonePe, err := gateway.NewPhonePeAdapter(phonePeConfig, log)
	if err != nil {
		log.Fatal("Failed to create gateway adapter", zap.Error(err))
	}

	// Application services
	paymentMetrics, err := telemetry.NewPaymentMetrics(meterProvider.Meter("storefront/payments"))
	if err != nil {
		log.Fatal("Failed to create payment metrics", zap.Error(err))
	}
	opts := []paymentapp.Option{
		paymentapp.WithLogger(log),
		paymentapp.WithMetrics(paymentMetrics),
		paymentapp.WithEventPublisher(eventBus),
	}

	reconcilerOpts := append([]paymentapp.Option{
		paymentapp.WithIdempotencyStore(idempotencyStore, cfg.Redis.IdempotencyTTL),
	}, opts...)
	if cfg.Archive.Enabled {
		archive, err := storage.NewS3PayloadArchive(&cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create payload archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Warn("Payload archive bucket not ready", zap.String("bucket", archive.Bucket()), zap.Error(err))
		}
		reconcilerOpts = append(reconcilerOpts, paymentapp.WithPayloadArchive(archive))
		log.Info("Gateway payload archive enabled", zap.String("bucket", archive.Bucket()))
	}

	reconciler := paymentapp.NewReconciler(uow, reconcilerOpts...)
	initiator := paymentapp.NewInitiator(repos.Orders, uow, phonePe, opts...)
	poller := paymentapp.NewStatusPoller(repos.Orders, phonePe, reconciler, opts...)
	sweeper := paymentapp.NewSweeper(repos.Orders, poller, cfg.Sweep.StuckAfter, cfg.Sweep.BatchSize, opts...)
	adminService := paymentapp.NewAdminService(repos.Attempts, uow, poller, sweeper, opts...)
	orderService := paymentapp.NewOrderService(repos.Orders, repos.Attempts, opts...)

	if cfg.Sweep.Enabled {
		sweepTrigger, err := scheduler.NewSweepTrigger(cfg.Sweep, sweeper, log)
		if err != nil {
			log.Fatal("Invalid sweep configuration", zap.Error(err))
		}
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep trigger", zap.Error(err))
		}
		defer func() {
			if err := sweepTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping sweep trigger", zap.Error(err))
			}
		}()
		log.Info("Stuck payment sweep scheduled",
			zap.Duration("interval", cfg.Sweep.Interval),
			zap.Duration("stuck_after", cfg.Sweep.StuckAfter),
		)
	}

	// HTTP handlers
	handlers := router.Handlers{
		Payments: handler.NewPaymentHandler(initiator, orderService),
		Callbacks: handler.NewCallbackHandler(reconciler, poller, orderService, phonePe, handler.CallbackConfig{
			FrontendBaseURL: cfg.Gateway.FrontendBaseURL,
			MerchantID:      cfg.Gateway.MerchantID,
			VerifyCallbacks: cfg.Gateway.VerifyCallbacks,
		}),
		Admin:  handler.NewAdminHandler(adminService),
		Health: handler.NewHealthHandler(db),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. Tracing - server span first so every later log line carries trace_id
	// 2. Logger - request ID and access log
	// 3. Recovery
	// 4. Security headers, CORS, body limit
	// 5. Metrics and profiling labels
	// 6. Global rate limit
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("storefront/http"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	engine.Use(httpMetrics)
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}

	var initiateGuards []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		globalLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer globalLimiter.Stop()
		engine.Use(middleware.RateLimit(globalLimiter))

		initiateLimiter := middleware.NewRateLimiter(cfg.HTTP.InitiateRateLimitRequests, cfg.HTTP.InitiateRateLimitWindow)
		defer initiateLimiter.Stop()
		initiateGuards = append(initiateGuards, middleware.RateLimitByKey(initiateLimiter, middleware.ClientKey))

		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Int("initiate_requests", cfg.HTTP.InitiateRateLimitRequests),
		)
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	adminGuards := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.RequireRole(cfg.JWT.AdminRole),
	}

	router.RegisterPaymentRoutes(engine, handlers, router.Guards{
		Customer: []gin.HandlerFunc{middleware.OptionalJWTAuthMiddleware(jwtService)},
		Initiate: initiateGuards,
		Admin:    adminGuards,
	})

	swaggerGuard := middleware.SwaggerProtection(
		middleware.SwaggerConfigFrom(cfg.HTTP, cfg.App.Env == "production"),
		adminGuards...,
	)
	engine.GET("/swagger/*any", swaggerGuard, ginSwagger.WrapHandler(swaggerFiles.Handler))

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
