package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/config"
	"github.com/duynhne/user-service/internal/core/domain"
	"github.com/duynhne/user-service/internal/core/security"
	logicv1 "github.com/duynhne/user-service/internal/logic/v1"
	"github.com/duynhne/user-service/internal/messaging"
	v1 "github.com/duynhne/user-service/internal/web/v1"
	"github.com/duynhne/user-service/middleware"
)

func main() {
	// Load configuration from environment variables (with .env file support for local dev)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Logging)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	logger.Info("Service starting",
		zap.String("service", cfg.Service.Name),
		zap.String("version", cfg.Service.Version),
		zap.String("env", cfg.Service.Env),
		zap.String("port", cfg.Service.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Tracing
	var tp interface{ Shutdown(context.Context) error }
	if t, err := middleware.InitTracing(cfg); err != nil {
		if errors.Is(err, middleware.ErrTracingDisabled) {
			logger.Info("Tracing disabled (TRACING_ENABLED=false)")
		} else {
			logger.Warn("Failed to initialize tracing", zap.Error(err))
		}
	} else {
		tp = t
		logger.Info("Tracing initialized",
			zap.String("endpoint", cfg.Tracing.Endpoint),
			zap.Float64("sample_rate", cfg.Tracing.SampleRate),
		)
	}

	// Profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg.Profiling); err != nil {
			logger.Warn("Failed to initialize profiling", zap.Error(err))
		} else {
			logger.Info("Profiling initialized", zap.String("endpoint", cfg.Profiling.Endpoint))
			defer middleware.StopProfiling()
		}
	} else {
		logger.Info("Profiling disabled (PROFILING_ENABLED=false)")
	}

	// Storage
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(startupCtx, cfg, logger)
	cancelStartup()
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Domain events
	var publisher domain.EventPublisher = messaging.NopPublisher{}
	var natsPublisher *messaging.NATSPublisher
	if cfg.Events.NATSURL != "" {
		natsPublisher, err = messaging.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, cfg.Service.Name, logger)
		if err != nil {
			logger.Warn("NATS unavailable, domain events disabled", zap.Error(err))
		} else {
			publisher = natsPublisher
			logger.Info("NATS publisher connected", zap.String("subject_prefix", cfg.Events.SubjectPrefix))
		}
	}

	// Authentication: local JWT verification when a secret is configured, otherwise auth service introspection
	var authenticator middleware.Authenticator
	if cfg.Auth.JWTSecret != "" {
		authenticator = middleware.NewJWTAuthenticator(cfg.Auth.JWTSecret)
		logger.Info("Auth: verifying JWT locally")
	} else {
		authenticator = middleware.NewAuthClient(cfg.Auth.ServiceURL)
		logger.Info("Auth client initialized", zap.String("auth_service_url", cfg.Auth.ServiceURL))
	}

	service := logicv1.NewUserService(
		st.repo,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		publisher,
		logger,
		domain.QueryDefaults{Limit: cfg.Query.DefaultLimit, MaxLimit: cfg.Query.MaxLimit},
	)
	handler := v1.NewUserHandler(service)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	var isShuttingDown atomic.Bool

	r.Use(v1.Recovery(logger))

	// Tracing middleware (must be first for context propagation)
	r.Use(middleware.TracingMiddleware())

	// Logging middleware (must be before Prometheus middleware)
	r.Use(middleware.LoggingMiddleware(logger))

	if cfg.Metrics.Enabled {
		r.Use(middleware.PrometheusMiddleware())
	}

	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.NoRoute(v1.NoRoute)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown,
	// and while the storage backend is unreachable.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := st.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage_unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	if err := v1.RegisterRoutes(r.Group("/api/v1/users"), handler, authenticator, logger); err != nil {
		logger.Fatal("Failed to register routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting user service", zap.String("port", cfg.Service.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Fail readiness first and wait for propagation before closing the listener.
	isShuttingDown.Store(true)
	if drainDelay := cfg.GetReadinessDrainDelayDuration(); drainDelay > 0 {
		logger.Info("Readiness drain delay started", zap.Duration("delay", drainDelay))
		time.Sleep(drainDelay)
	}

	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("Shutting down server...", zap.Duration("timeout", shutdownTimeout))

	// Order: HTTP server, event publisher, storage, tracer
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		logger.Info("HTTP server shutdown complete")
	}

	if natsPublisher != nil {
		natsPublisher.Close()
		logger.Info("NATS publisher drained")
	}

	st.close()
	logger.Info("Storage closed")

	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		} else {
			logger.Info("Tracer shutdown complete")
		}
	}

	logger.Info("Graceful shutdown complete")
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.TraceIDHeader, middleware.TraceParentHeader}
	c.ExposeHeaders = []string{middleware.TraceIDHeader}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return c
}
