package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"aisreporter/internal/admin"
	"aisreporter/internal/config"
	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/internal/reporter"
	"aisreporter/internal/status"
	"aisreporter/internal/upload"
	"aisreporter/pkg/bootstrap"
	"aisreporter/pkg/circuitbreaker"
	"aisreporter/pkg/health"
	"aisreporter/pkg/logging"
	"aisreporter/pkg/metrics"
	"aisreporter/pkg/middleware"
	"aisreporter/pkg/ratelimit"
	"aisreporter/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	tracker        *status.Tracker
	reporter       *reporter.Reporter
	router         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
	cancel         context.CancelFunc
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterReporterMetrics()
	metrics.RegisterSourceMetrics()
	metrics.RegisterManagementMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.InitSources(); err != nil {
		return fmt.Errorf("failed to initialize inputs: %w", err)
	}

	a.tracker = status.NewTracker(a.Logger)
	a.reporter = reporter.New(a.Bus, a.tracker, a.Logger,
		reporter.WithHTTPClient(upload.NewHTTPClient(time.Duration(a.Config.Upload.TimeoutSeconds)*time.Second)),
		reporter.WithUploadOptions(a.uploadOptions()...),
	)

	a.initRouter(ctx)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.Config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.Config.Server.WriteTimeoutSeconds) * time.Second,
	}

	initCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(initCtx, "Application initialized",
		"inputs", len(a.Sources),
		"channels", a.Config.Reporter.Channels(),
		"circuit_breaker", a.Config.CircuitBreaker.Enabled,
	)
	return nil
}

func (a *App) uploadOptions() []upload.Option {
	var opts []upload.Option
	if a.Config.Upload.UserAgent != "" {
		opts = append(opts, upload.WithUserAgent(a.Config.Upload.UserAgent))
	}
	if a.Config.CircuitBreaker.Enabled {
		opts = append(opts, upload.WithCircuitBreaker(circuitbreaker.NewWrapper(a.breakerConfig())))
	}
	return opts
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cfg := a.Config.CircuitBreaker
	cb := circuitbreaker.DefaultConfig("upload")
	if cfg.MaxRequests > 0 {
		cb.MaxRequests = cfg.MaxRequests
	}
	if cfg.IntervalSeconds > 0 {
		cb.Interval = time.Duration(cfg.IntervalSeconds) * time.Second
	}
	if cfg.TimeoutSeconds > 0 {
		cb.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.FailureRatio > 0 {
		cb.ReadyToTrip = circuitbreaker.FailureRatioTrip(cfg.MinRequests, cfg.FailureRatio)
	}
	cb.OnStateChange = func(name string, from, to gobreaker.State) {
		a.Logger.Warnw("Circuit breaker state changed",
			"name", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
	return cb
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger, "/health", "/metrics"))

	if a.Config.Management.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(a.Config.Management.RateLimit)
		router.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewReporterChecker(a.reporter))
	if client := a.RedisClient(); client != nil {
		healthRegistry.Register(health.NewRedisChecker(client))
	}

	adminHandler := admin.NewHandler(a.reporter, a.tracker, healthRegistry, a.Config.Reporter.Name, a.Logger)
	adminHandler.RegisterRoutes(router)
	router.NoRoute(adminHandler.NotFound)

	a.router = router
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	if err := a.reporter.Start(ctx, reporter.SettingsFromConfig(a.Config.Reporter)); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	for _, s := range a.Sources {
		g.Go(func() error {
			if err := s.Run(gCtx); err != nil {
				return fmt.Errorf("input %s failed: %w", s.Name(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops the reporter first so no upload starts while inputs and
// the HTTP server go away.
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.reporter != nil {
			a.reporter.Stop()
		}

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	})
}
